package presentation

import (
	"context"
	"sync"
	"testing"

	"github.com/sglre6355/sgrfleet/internal/fleet"
)

// recordingSender records the content of every sent message.
type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) SendMessage(_ context.Context, _, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, content)
	return nil
}

func (s *recordingSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type stubConn struct {
	login  fleet.LoginInfo
	sender *recordingSender
}

func (c *stubConn) Close() error               { return nil }
func (c *stubConn) Sender() fleet.Sender       { return c.sender }
func (c *stubConn) LoginInfo() fleet.LoginInfo { return c.login }

func (c *stubConn) WaitUntilDisconnected(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type stubConnector struct {
	conn *stubConn
}

func (c stubConnector) Connect(context.Context, string, fleet.Credential) (fleet.Connection, error) {
	return c.conn, nil
}

func newStubSession(t *testing.T, identity, username, userID string) (*fleet.Session, *recordingSender) {
	t.Helper()

	sender := &recordingSender{}
	conn := &stubConn{
		login:  fleet.LoginInfo{Platform: "discord", UserID: userID, Username: username},
		sender: sender,
	}
	s, err := fleet.NewSession(context.Background(), stubConnector{conn: conn}, identity, fleet.NewCredential("token"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, sender
}

type sessionList []*fleet.Session

func (l sessionList) Sessions() []*fleet.Session { return l }
