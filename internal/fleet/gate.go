package fleet

import (
	"context"
	"sort"
	"sync"
)

// Processor receives sessions whose inbound events it should handle.
type Processor interface {
	Register(s *Session)
}

// Unregisterer is implemented by processors that keep per-session state.
// The Registry calls Unregister once a registered session leaves it.
type Unregisterer interface {
	Unregister(s *Session)
}

// CachePrimer warms per-connection caches after activation-time registration.
type CachePrimer interface {
	Prime(ctx context.Context, conn Connection)
}

// admission is the outcome of the register-or-wait decision.
type admission int

const (
	admitParked admission = iota
	admitDirect
	admitGone
)

// Gate is the one-shot activation switch plus the sessions parked before it flipped.
// The register-or-wait decision and the drain share one mutex, so every session
// is either parked and later drained, or registered directly. Never both.
type Gate struct {
	mu        sync.Mutex
	active    bool
	processor Processor
	waiting   map[string]*Session
}

// NewGate creates an inactive gate.
func NewGate() *Gate {
	return &Gate{
		waiting: make(map[string]*Session),
	}
}

// IsActive reports whether a processor has been installed.
func (g *Gate) IsActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Processor returns the installed processor, if any.
func (g *Gate) Processor() (Processor, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return nil, false
	}
	return g.processor, true
}

// Parked returns the number of sessions waiting for activation.
func (g *Gate) Parked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.waiting)
}

// admit makes the register-or-wait decision for s. Sessions for which live
// reports false are neither parked nor registered. When the gate is active it
// returns the processor and the caller registers s; otherwise s is parked.
// live is called with the gate locked and must not call back into the gate.
func (g *Gate) admit(s *Session, live func(*Session) bool) (Processor, admission) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !live(s) {
		return nil, admitGone
	}
	if g.active {
		return g.processor, admitDirect
	}
	g.waiting[s.identity] = s
	return nil, admitParked
}

// activate installs p and hands back the parked sessions, sorted by identity.
// The waiting map is empty when activate returns.
func (g *Gate) activate(p Processor) ([]*Session, error) {
	if p == nil {
		return nil, ErrNilProcessor
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return nil, ErrAlreadyActivated
	}
	g.processor = p
	g.active = true

	drained := make([]*Session, 0, len(g.waiting))
	for _, s := range g.waiting {
		drained = append(drained, s)
	}
	clear(g.waiting)

	sort.Slice(drained, func(i, j int) bool {
		return drained[i].identity < drained[j].identity
	})
	return drained, nil
}

// forget drops s from the waiting map if it is the parked entry for its identity.
func (g *Gate) forget(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if parked, ok := g.waiting[s.identity]; ok && parked == s {
		delete(g.waiting, s.identity)
	}
}
