package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sglre6355/sgrfleet/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPollInterval is how often JoinAll re-checks the live set.
const DefaultPollInterval = 2 * time.Second

// maxConcurrentPrimes bounds cache priming during activation.
const maxConcurrentPrimes = 4

// Factory constructs a new, authenticated Session.
type Factory func(ctx context.Context) (*Session, error)

// Registry holds the live sessions of the process and the activation gate
// that decides when they are handed to the message processor.
type Registry struct {
	mu   sync.RWMutex
	live map[string]*Session

	gate    *Gate
	flights singleflight.Group

	pollInterval time.Duration
	primer       CachePrimer
}

// NewRegistry creates an empty, inactive Registry.
// A non-positive pollInterval selects DefaultPollInterval; primer may be nil.
func NewRegistry(pollInterval time.Duration, primer CachePrimer) *Registry {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Registry{
		live:         make(map[string]*Session),
		gate:         NewGate(),
		pollInterval: pollInterval,
		primer:       primer,
	}
}

// Upsert returns the live session for identity, constructing it with factory
// if there is none. Concurrent calls for one identity share a single
// construction.
func (r *Registry) Upsert(ctx context.Context, identity string, factory Factory) (*Session, error) {
	if s, ok := r.Lookup(identity); ok {
		return s, nil
	}

	v, err, _ := r.flights.Do(identity, func() (any, error) {
		// A previous flight may have finished between the lookup and Do.
		if s, ok := r.Lookup(identity); ok {
			return s, nil
		}
		return r.construct(ctx, identity, factory)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Create constructs a session for identity with factory. Unlike Upsert it
// fails with ErrDuplicateIdentity when identity is already live, without
// invoking factory.
func (r *Registry) Create(ctx context.Context, identity string, factory Factory) (*Session, error) {
	if _, ok := r.Lookup(identity); ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateIdentity, identity)
	}
	return r.construct(ctx, identity, factory)
}

// construct runs factory, inserts the result and routes it through the gate.
func (r *Registry) construct(ctx context.Context, identity string, factory Factory) (*Session, error) {
	s, err := factory(ctx)
	if err != nil {
		metrics.AuthFailuresTotal.Inc()
		slog.Warn("failed to construct session", "identity", identity, "error", err)
		return nil, err
	}
	if s.identity != identity {
		r.discard(s)
		return nil, fmt.Errorf("factory for %s returned session for %s", identity, s.identity)
	}

	if err := r.insert(s); err != nil {
		r.discard(s)
		return nil, err
	}
	metrics.SessionsCreatedTotal.Inc()

	switch p, admitted := r.gate.admit(s, r.isLive); admitted {
	case admitDirect:
		if r.register(p, s, metrics.PathDirect) {
			slog.Info("registered session", "session", s)
		}
	case admitParked:
		slog.Info("parked session until activation", "session", s)
	case admitGone:
		slog.Info("skipped registration of removed session", "session", s)
	}

	return s, nil
}

// register hands s to p. If s was removed while p.Register ran, p is told to
// forget it again, so a processor never keeps state for a session that left.
// It reports whether s is still live afterwards.
func (r *Registry) register(p Processor, s *Session, path string) bool {
	p.Register(s)
	metrics.SessionsRegisteredTotal.WithLabelValues(path).Inc()

	if !r.isLive(s) {
		r.unregister(s)
		return false
	}
	return true
}

// unregister tells the installed processor that s has left the registry.
func (r *Registry) unregister(s *Session) {
	p, ok := r.gate.Processor()
	if !ok {
		return
	}
	if u, ok := p.(Unregisterer); ok {
		u.Unregister(s)
	}
}

// insert adds s to the live map unless its identity is already taken.
func (r *Registry) insert(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.live[s.identity]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, s.identity)
	}
	r.live[s.identity] = s
	return nil
}

// discard closes a session that never made it into the registry.
func (r *Registry) discard(s *Session) {
	if err := s.Close(); err != nil {
		slog.Warn("failed to close discarded session", "identity", s.identity, "error", err)
	}
}

// Lookup returns the live session for identity.
func (r *Registry) Lookup(identity string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.live[identity]
	return s, ok
}

// Remove evicts the session for identity and closes it. Removing an absent
// identity returns false and changes nothing.
func (r *Registry) Remove(identity string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.live[identity]
	if ok {
		delete(r.live, identity)
	}
	r.mu.Unlock()

	if !ok {
		return nil, false
	}

	r.gate.forget(s)
	r.unregister(s)
	metrics.SessionsRemovedTotal.WithLabelValues(metrics.ReasonRemove).Inc()

	if err := s.Close(); err != nil {
		slog.Warn("failed to close removed session", "identity", identity, "error", err)
	}
	slog.Info("removed session", "identity", identity)

	return s, true
}

// ShutdownAll closes every live session and empties the registry.
// Each close runs independently; failures are joined into the returned error.
func (r *Registry) ShutdownAll() error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		sessions = append(sessions, s)
	}
	clear(r.live)
	r.mu.Unlock()

	if len(sessions) == 0 {
		return nil
	}

	var (
		g      errgroup.Group
		errsMu sync.Mutex
		errs   []error
	)
	for _, s := range sessions {
		r.gate.forget(s)
		r.unregister(s)
		g.Go(func() error {
			if err := s.Close(); err != nil {
				slog.Warn("failed to close session during shutdown", "identity", s.identity, "error", err)
				errsMu.Lock()
				errs = append(errs, err)
				errsMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	metrics.SessionsRemovedTotal.WithLabelValues(metrics.ReasonShutdown).Add(float64(len(sessions)))
	slog.Info("shut down sessions", "count", len(sessions), "failed", len(errs))

	return errors.Join(errs...)
}

// JoinAll blocks until the registry is empty or ctx is done. Every poll
// interval it waits for each live session to disconnect and evicts the ones
// that did.
func (r *Registry) JoinAll(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		sessions := r.Sessions()
		if len(sessions) == 0 {
			return nil
		}

		for _, s := range sessions {
			if err := s.WaitUntilDisconnected(ctx); err != nil {
				return err
			}
			r.evict(s)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// evict removes s from the registry if it is still the live entry for its
// identity. The session is assumed to be disconnected already.
func (r *Registry) evict(s *Session) {
	r.mu.Lock()
	current, ok := r.live[s.identity]
	if ok && current == s {
		delete(r.live, s.identity)
	}
	r.mu.Unlock()

	if ok && current == s {
		r.gate.forget(s)
		r.unregister(s)
		metrics.SessionsRemovedTotal.WithLabelValues(metrics.ReasonDisconnect).Inc()
		slog.Info("evicted disconnected session", "identity", s.identity)
	}
}

// isLive reports whether s is the live entry for its identity.
func (r *Registry) isLive(s *Session) bool {
	current, ok := r.Lookup(s.identity)
	return ok && current == s
}

// Sessions returns a snapshot of the live sessions sorted by identity.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	result := make([]*Session, 0, len(r.live))
	for _, s := range r.live {
		result = append(result, s)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].identity < result[j].identity
	})
	return result
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Parked returns the number of sessions waiting for activation.
func (r *Registry) Parked() int {
	return r.gate.Parked()
}

// IsActive reports whether Activate has installed a processor.
func (r *Registry) IsActive() bool {
	return r.gate.IsActive()
}

// Activate installs p, registers every parked session with it and primes
// their caches. Sessions created afterwards are registered immediately.
// A second call returns ErrAlreadyActivated and leaves the first processor
// in place.
func (r *Registry) Activate(ctx context.Context, p Processor) error {
	drained, err := r.gate.activate(p)
	if err != nil {
		return err
	}

	registered := make([]*Session, 0, len(drained))
	for _, s := range drained {
		// Removed while parked.
		if !r.isLive(s) {
			continue
		}
		if r.register(p, s, metrics.PathDrain) {
			registered = append(registered, s)
		}
	}

	if r.primer != nil && len(registered) > 0 {
		var g errgroup.Group
		g.SetLimit(maxConcurrentPrimes)
		for _, s := range registered {
			g.Go(func() error {
				r.primer.Prime(ctx, s.conn)
				return nil
			})
		}
		_ = g.Wait()
	}

	slog.Info("activated registry", "drained", len(registered), "skipped", len(drained)-len(registered))

	return nil
}
