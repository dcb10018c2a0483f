package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Connector authenticates an account and returns its live connection.
// Connect blocks until the login handshake has completed or failed.
type Connector interface {
	Connect(ctx context.Context, identity string, cred Credential) (Connection, error)
}

// Connection is an authenticated link to the chat platform.
type Connection interface {
	// Close terminates the link and waits for the disconnect to complete.
	Close() error

	// WaitUntilDisconnected blocks until the link reports disconnection.
	WaitUntilDisconnected(ctx context.Context) error

	// Sender returns the send capability derived from this link.
	Sender() Sender

	// LoginInfo describes the account the link authenticated as.
	LoginInfo() LoginInfo
}

// Sender dispatches outbound messages.
type Sender interface {
	SendMessage(ctx context.Context, channelID, content string) error
}

// LoginInfo is a read-only snapshot of an authenticated account.
type LoginInfo struct {
	Identity    string
	Platform    string
	UserID      string
	Username    string
	ConnectedAt time.Time
}

// Credential is opaque secret material for one account.
// It formats as [REDACTED] everywhere, including structured logs.
type Credential struct {
	secret string
}

// NewCredential wraps a secret.
func NewCredential(secret string) Credential {
	return Credential{secret: secret}
}

// Reveal returns the raw secret. Only Connector implementations should call it.
func (c Credential) Reveal() string {
	return c.secret
}

// IsZero reports whether the credential holds no secret.
func (c Credential) IsZero() bool {
	return c.secret == ""
}

func (c Credential) String() string {
	return "[REDACTED]"
}

// GoString keeps %#v from printing the secret.
func (c Credential) GoString() string {
	return "fleet.Credential{[REDACTED]}"
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Session is one authenticated bot account.
// A Session owns its connection; the Registry owns the Session.
type Session struct {
	identity   string
	credential Credential
	conn       Connection
	sender     Sender
	login      LoginInfo
}

// NewSession authenticates identity with the connector and wraps the resulting
// connection. It blocks for the duration of the login handshake.
func NewSession(
	ctx context.Context,
	connector Connector,
	identity string,
	cred Credential,
) (*Session, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is empty", ErrAuthentication)
	}

	conn, err := connector.Connect(ctx, identity, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAuthentication, identity, err)
	}

	login := conn.LoginInfo()
	login.Identity = identity
	if login.ConnectedAt.IsZero() {
		login.ConnectedAt = time.Now()
	}

	return &Session{
		identity:   identity,
		credential: cred,
		conn:       conn,
		sender:     conn.Sender(),
		login:      login,
	}, nil
}

// Dial returns a Factory that builds a Session through connector.
func Dial(connector Connector, identity string, cred Credential) Factory {
	return func(ctx context.Context) (*Session, error) {
		return NewSession(ctx, connector, identity, cred)
	}
}

// Identity returns the account identifier the session was created for.
func (s *Session) Identity() string {
	return s.identity
}

// LoginInfo returns the login snapshot captured at construction.
func (s *Session) LoginInfo() LoginInfo {
	return s.login
}

// Sender returns the session's send capability.
// It must not be used after Close.
func (s *Session) Sender() Sender {
	return s.sender
}

// Connection returns the underlying connection handle.
func (s *Session) Connection() Connection {
	return s.conn
}

// Send sends content to channelID through the session's sender.
func (s *Session) Send(ctx context.Context, channelID, content string) error {
	if err := s.sender.SendMessage(ctx, channelID, content); err != nil {
		return fmt.Errorf("failed to send message as %s: %w", s.identity, err)
	}
	return nil
}

// Close terminates the connection. It does not remove the session from a
// Registry; use Registry.Remove for that.
func (s *Session) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close session %s: %w", s.identity, err)
	}
	return nil
}

// WaitUntilDisconnected blocks until the connection reports disconnection
// or ctx is done.
func (s *Session) WaitUntilDisconnected(ctx context.Context) error {
	return s.conn.WaitUntilDisconnected(ctx)
}

// LogValue implements slog.LogValuer.
func (s *Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("identity", s.identity),
		slog.String("platform", s.login.Platform),
		slog.String("user_id", s.login.UserID),
		slog.String("username", s.login.Username),
	)
}
