package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrfleet/internal/fleet"
)

// stubConn is a fleet.Connection test double.
type stubConn struct {
	identity     string
	mu           sync.Mutex
	closed       bool
	disconnected chan struct{}
}

func newStubConn(identity string) *stubConn {
	return &stubConn{identity: identity, disconnected: make(chan struct{})}
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.disconnected)
	}
	return nil
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stubConn) WaitUntilDisconnected(ctx context.Context) error {
	select {
	case <-c.disconnected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *stubConn) Sender() fleet.Sender { return nil }

func (c *stubConn) LoginInfo() fleet.LoginInfo {
	return fleet.LoginInfo{Platform: "stub", Username: "user-" + c.identity}
}

// stubDiscordConn additionally exposes a discordgo session like the Discord platform conn.
type stubDiscordConn struct {
	*stubConn
	session *discordgo.Session
	userID  snowflake.ID
}

func (c *stubDiscordConn) Discord() *discordgo.Session { return c.session }
func (c *stubDiscordConn) UserID() snowflake.ID        { return c.userID }

// stubConnector hands out stub connections and fails for configured identities.
type stubConnector struct {
	mu       sync.Mutex
	conns    map[string]*stubConn
	failures map[string]bool
}

func newStubConnector() *stubConnector {
	return &stubConnector{
		conns:    make(map[string]*stubConn),
		failures: make(map[string]bool),
	}
}

func (c *stubConnector) Connect(_ context.Context, identity string, cred fleet.Credential) (fleet.Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failures[identity] || cred.IsZero() {
		return nil, errors.New("invalid token")
	}
	conn := newStubConn(identity)
	c.conns[identity] = conn
	return conn, nil
}

func (c *stubConnector) conn(identity string) *stubConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conns[identity]
}

// singleConnector always returns the same connection.
type singleConnector struct {
	conn fleet.Connection
}

func (c singleConnector) Connect(context.Context, string, fleet.Credential) (fleet.Connection, error) {
	return c.conn, nil
}

// discordConnector hands out stub connections backed by unopened discordgo sessions.
type discordConnector struct {
	mu     sync.Mutex
	nextID snowflake.ID
	conns  map[string][]*stubDiscordConn
}

func newDiscordConnector() *discordConnector {
	return &discordConnector{
		nextID: 175928847299117063,
		conns:  make(map[string][]*stubDiscordConn),
	}
}

func (c *discordConnector) Connect(_ context.Context, identity string, cred fleet.Credential) (fleet.Connection, error) {
	session, err := discordgo.New("Bot " + cred.Reveal())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	conn := &stubDiscordConn{
		stubConn: newStubConn(identity),
		session:  session,
		userID:   c.nextID,
	}
	c.conns[identity] = append(c.conns[identity], conn)
	return conn, nil
}
