package domain

import (
	"fmt"
	"slices"
	"strings"
)

// EmptyRosterMessage is shown when no session is online.
const EmptyRosterMessage = "No sessions online."

// RosterEntry describes one online bot account.
type RosterEntry struct {
	Identity string
	Username string
	UserID   string
}

// Roster is the list of online bot accounts, ordered by identity.
type Roster struct {
	Entries []RosterEntry
}

// NewRoster creates a Roster from entries sorted by identity.
func NewRoster(entries []RosterEntry) *Roster {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b RosterEntry) int {
		return strings.Compare(a.Identity, b.Identity)
	})

	return &Roster{Entries: sorted}
}

// IsEmpty reports whether no session is online.
func (r *Roster) IsEmpty() bool {
	return len(r.Entries) == 0
}

// Text renders the roster as one line per account.
func (r *Roster) Text() string {
	if r.IsEmpty() {
		return EmptyRosterMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d sessions online:", len(r.Entries))
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "\n%s: %s (%s)", e.Identity, e.Username, e.UserID)
	}
	return b.String()
}
