// Package session tracks the current login state. Components read it as
// an immutable snapshot; only the session API mutates it.
package session

import (
	"sync"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
)

var _ agent.AuthReader = (*Store)(nil)

// Store is a mutex-guarded holder of the current AuthSnapshot.
type Store struct {
	mu   sync.RWMutex
	snap agent.AuthSnapshot
}

func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current session state by value.
func (s *Store) Snapshot() agent.AuthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetLoggedIn replaces the session with a logged-in snapshot and
// returns it, so the caller hands the exact same view to downstream
// handlers.
func (s *Store) SetLoggedIn(user urn.URN, userType agent.UserType) agent.AuthSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = agent.AuthSnapshot{LoggedIn: true, UserID: user, UserType: userType}
	return s.snap
}

// Clear resets the session to logged-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = agent.AuthSnapshot{}
}
