package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrfleet/internal/fleet"
)

// Conn is one authenticated Discord gateway connection.
type Conn struct {
	session   *discordgo.Session
	sender    *Sender
	identity  string
	reconnect bool

	userID snowflake.ID
	login  fleet.LoginInfo

	closeOnce sync.Once
	closeErr  error

	disconnectOnce sync.Once
	disconnected   chan struct{}
}

// Ensure Conn implements fleet.Connection.
var _ fleet.Connection = (*Conn)(nil)

// newConn wraps session and hooks its disconnect events. The session may not
// be open yet. Fields read by the handler are set before it is added.
func newConn(session *discordgo.Session, identity string, cfg Config) *Conn {
	c := &Conn{
		session:      session,
		sender:       NewSender(session, cfg.SendRate, cfg.SendBurst),
		identity:     identity,
		reconnect:    cfg.Reconnect,
		disconnected: make(chan struct{}),
	}
	session.AddHandler(c.onDisconnect)
	return c
}

// captureLogin snapshots the bot user from the READY state.
func (c *Conn) captureLogin() error {
	user := c.session.State.User
	if user == nil {
		return errors.New("no user in Discord ready state")
	}

	id, err := snowflake.Parse(user.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot user ID: %w", err)
	}

	c.userID = id
	c.login = fleet.LoginInfo{
		Platform:    Platform,
		UserID:      id.String(),
		Username:    user.Username,
		ConnectedAt: time.Now(),
	}
	return nil
}

// onDisconnect ends WaitUntilDisconnected when discordgo will not reconnect on
// its own. It runs on discordgo's event goroutine, so it must not touch login.
func (c *Conn) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	if c.reconnect {
		slog.Debug("Discord gateway disconnected, waiting for reconnect", "identity", c.identity)
		return
	}
	c.markDisconnected()
}

func (c *Conn) markDisconnected() {
	c.disconnectOnce.Do(func() {
		close(c.disconnected)
	})
}

// Close closes the gateway connection. Calling it again returns the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if err := c.session.Close(); err != nil {
			c.closeErr = fmt.Errorf("failed to close Discord connection: %w", err)
		}
		c.markDisconnected()
	})
	return c.closeErr
}

// WaitUntilDisconnected blocks until the connection is closed or lost for good.
func (c *Conn) WaitUntilDisconnected(ctx context.Context) error {
	select {
	case <-c.disconnected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sender returns the rate-limited message sender for this connection.
func (c *Conn) Sender() fleet.Sender {
	return c.sender
}

// LoginInfo returns the bot user captured at login.
func (c *Conn) LoginInfo() fleet.LoginInfo {
	return c.login
}

// UserID returns the bot user ID, which is also its application ID.
func (c *Conn) UserID() snowflake.ID {
	return c.userID
}

// Discord returns the underlying discordgo session.
func (c *Conn) Discord() *discordgo.Session {
	return c.session
}
