package fleet

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// fakeConn is a test double for Connection whose disconnect is driven by the test.
type fakeConn struct {
	login    LoginInfo
	closeErr error

	closeCalls   atomic.Int32
	disconnected chan struct{}
	once         sync.Once

	mu   sync.Mutex
	sent []string
}

func newFakeConn(identity string) *fakeConn {
	return &fakeConn{
		login: LoginInfo{
			Platform: "fake",
			UserID:   "id-" + identity,
			Username: "user-" + identity,
		},
		disconnected: make(chan struct{}),
	}
}

func (c *fakeConn) Close() error {
	c.closeCalls.Add(1)
	c.disconnect()
	return c.closeErr
}

func (c *fakeConn) disconnect() {
	c.once.Do(func() { close(c.disconnected) })
}

func (c *fakeConn) WaitUntilDisconnected(ctx context.Context) error {
	select {
	case <-c.disconnected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) Sender() Sender       { return c }
func (c *fakeConn) LoginInfo() LoginInfo { return c.login }

func (c *fakeConn) SendMessage(_ context.Context, channelID, content string) error {
	if content == "" {
		return errors.New("empty content")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, channelID+":"+content)
	return nil
}

func (c *fakeConn) isClosed() bool {
	return c.closeCalls.Load() > 0
}

// fakeConnector is a test double for Connector.
type fakeConnector struct {
	mu       sync.Mutex
	calls    map[string]int
	conns    map[string][]*fakeConn
	failures map[string]error
	closeErr map[string]error
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		calls:    make(map[string]int),
		conns:    make(map[string][]*fakeConn),
		failures: make(map[string]error),
		closeErr: make(map[string]error),
	}
}

func (c *fakeConnector) Connect(_ context.Context, identity string, cred Credential) (Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[identity]++
	if err, ok := c.failures[identity]; ok {
		return nil, err
	}
	if cred.IsZero() {
		return nil, errors.New("missing credential")
	}

	conn := newFakeConn(identity)
	conn.closeErr = c.closeErr[identity]
	c.conns[identity] = append(c.conns[identity], conn)
	return conn, nil
}

func (c *fakeConnector) callCount(identity string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[identity]
}

func (c *fakeConnector) conn(identity string) *fakeConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	conns := c.conns[identity]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

func (c *fakeConnector) factory(identity string) Factory {
	return Dial(c, identity, NewCredential("secret-"+identity))
}

// recordingProcessor counts Register calls per identity and per session, and
// Unregister calls per session.
type recordingProcessor struct {
	mu           sync.Mutex
	counts       map[string]int
	sessions     map[*Session]int
	unregistered map[*Session]int
	onRegister   func(s *Session)
}

func newRecordingProcessor() *recordingProcessor {
	return &recordingProcessor{
		counts:       make(map[string]int),
		sessions:     make(map[*Session]int),
		unregistered: make(map[*Session]int),
	}
}

func (p *recordingProcessor) Register(s *Session) {
	p.mu.Lock()
	p.counts[s.Identity()]++
	p.sessions[s]++
	hook := p.onRegister
	p.mu.Unlock()

	if hook != nil {
		hook(s)
	}
}

func (p *recordingProcessor) Unregister(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unregistered[s]++
}

func (p *recordingProcessor) count(identity string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[identity]
}

func (p *recordingProcessor) sessionCount(s *Session) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[s]
}

func (p *recordingProcessor) unregisterCount(s *Session) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unregistered[s]
}

func (p *recordingProcessor) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.counts {
		n += c
	}
	return n
}

// recordingPrimer counts Prime calls per connection.
type recordingPrimer struct {
	mu     sync.Mutex
	primed map[Connection]int
}

func newRecordingPrimer() *recordingPrimer {
	return &recordingPrimer{primed: make(map[Connection]int)}
}

func (p *recordingPrimer) Prime(_ context.Context, conn Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primed[conn]++
}

func (p *recordingPrimer) count(conn Connection) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.primed[conn]
}
