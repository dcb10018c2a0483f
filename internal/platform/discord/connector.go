package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrfleet/internal/fleet"
	"golang.org/x/time/rate"
)

// Platform is the LoginInfo.Platform value for Discord sessions.
const Platform = "discord"

// DefaultIntents are the gateway intents requested when none are configured.
const DefaultIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// Default send limits.
const (
	DefaultSendRate  = rate.Limit(5)
	DefaultSendBurst = 5
)

// ErrMissingToken is returned when Connect is given an empty credential.
var ErrMissingToken = errors.New("discord token is required")

// Config holds the settings shared by every connection a Connector opens.
type Config struct {
	Intents   discordgo.Intent
	Reconnect bool
	SendRate  rate.Limit
	SendBurst int
}

// Connector opens authenticated Discord gateway connections.
type Connector struct {
	config Config
}

// Ensure Connector implements fleet.Connector.
var _ fleet.Connector = (*Connector)(nil)

// NewConnector creates a new Connector. Zero-valued fields fall back to defaults.
func NewConnector(cfg Config) *Connector {
	if cfg.Intents == 0 {
		cfg.Intents = DefaultIntents
	}
	if cfg.SendRate <= 0 {
		cfg.SendRate = DefaultSendRate
	}
	if cfg.SendBurst <= 0 {
		cfg.SendBurst = DefaultSendBurst
	}

	return &Connector{config: cfg}
}

// Connect logs in as the bot behind cred. It blocks until the gateway READY
// has been received or ctx is done.
func (c *Connector) Connect(
	ctx context.Context,
	identity string,
	cred fleet.Credential,
) (fleet.Connection, error) {
	if cred.IsZero() {
		return nil, ErrMissingToken
	}

	session, err := discordgo.New("Bot " + cred.Reveal())
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = c.config.Intents
	session.ShouldReconnectOnError = c.config.Reconnect

	conn := newConn(session, identity, c.config)

	opened := make(chan error, 1)
	go func() {
		opened <- session.Open()
	}()

	select {
	case err := <-opened:
		if err != nil {
			return nil, fmt.Errorf("failed to open Discord connection: %w", err)
		}
	case <-ctx.Done():
		// Open cannot be interrupted; close the gateway once it settles. A
		// failed Open leaves nothing to close, and the session is dropped.
		go func() {
			if err := <-opened; err == nil {
				_ = session.Close()
			}
		}()
		return nil, fmt.Errorf("context cancelled while opening Discord connection: %w", ctx.Err())
	}

	if err := conn.captureLogin(); err != nil {
		_ = session.Close()
		return nil, err
	}

	slog.Info("connected to Discord",
		"identity", identity,
		"user_id", conn.login.UserID,
		"username", conn.login.Username,
	)

	return conn, nil
}
