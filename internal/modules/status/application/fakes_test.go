package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sglre6355/sgrfleet/internal/fleet"
)

type sentMessage struct {
	channelID string
	content   string
}

// fakeSender records sent messages.
type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) SendMessage(_ context.Context, channelID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{channelID: channelID, content: content})
	return nil
}

func (s *fakeSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

// fakeConn is a fleet.Connection that never disconnects on its own.
type fakeConn struct {
	login  fleet.LoginInfo
	sender *fakeSender
}

func (c *fakeConn) Close() error               { return nil }
func (c *fakeConn) Sender() fleet.Sender       { return c.sender }
func (c *fakeConn) LoginInfo() fleet.LoginInfo { return c.login }

func (c *fakeConn) WaitUntilDisconnected(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeConnector struct {
	conn *fakeConn
}

func (c fakeConnector) Connect(context.Context, string, fleet.Credential) (fleet.Connection, error) {
	if c.conn == nil {
		return nil, errors.New("no connection")
	}
	return c.conn, nil
}

// newFakeSession builds a session logged in as username with the given user ID.
func newFakeSession(t *testing.T, identity, username, userID string) (*fleet.Session, *fakeSender) {
	t.Helper()

	sender := &fakeSender{}
	conn := &fakeConn{
		login:  fleet.LoginInfo{Platform: "discord", UserID: userID, Username: username},
		sender: sender,
	}
	s, err := fleet.NewSession(context.Background(), fakeConnector{conn: conn}, identity, fleet.NewCredential("token"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, sender
}

// staticSessions is a SessionLister over a fixed slice.
type staticSessions []*fleet.Session

func (s staticSessions) Sessions() []*fleet.Session { return s }
