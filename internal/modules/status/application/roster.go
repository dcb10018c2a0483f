package application

import (
	"github.com/sglre6355/sgrfleet/internal/fleet"
	"github.com/sglre6355/sgrfleet/internal/modules/status/domain"
)

// SessionLister lists the live sessions of the fleet.
type SessionLister interface {
	Sessions() []*fleet.Session
}

// RosterInteractor handles the fleet roster use case.
type RosterInteractor struct {
	sessions SessionLister
}

// NewRosterInteractor creates a new RosterInteractor.
func NewRosterInteractor(sessions SessionLister) *RosterInteractor {
	return &RosterInteractor{sessions: sessions}
}

// Execute returns the roster of every live session.
func (r *RosterInteractor) Execute() *domain.Roster {
	sessions := r.sessions.Sessions()

	entries := make([]domain.RosterEntry, 0, len(sessions))
	for _, s := range sessions {
		login := s.LoginInfo()
		entries = append(entries, domain.RosterEntry{
			Identity: s.Identity(),
			Username: login.Username,
			UserID:   login.UserID,
		})
	}

	return domain.NewRoster(entries)
}
