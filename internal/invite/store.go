// Package invite gates requests on an invite-code entitlement list and
// tracks per-code usage counts.
package invite

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Store holds the configured invite codes and in-memory usage counters.
// Counters are process-local; like the replay set, they assume a
// single-instance deployment and would move to a shared store in a
// multi-instance one.
type Store struct {
	codes map[string]struct{}

	mu    sync.Mutex
	usage map[string]int
}

// NewStore creates a Store from the configured code list.
func NewStore(codes []string) *Store {
	s := &Store{
		codes: make(map[string]struct{}, len(codes)),
		usage: make(map[string]int),
	}
	for _, code := range codes {
		s.codes[code] = struct{}{}
	}
	return s
}

// Validate reports whether code is on the entitlement list.
func (s *Store) Validate(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// RecordUse increments the usage counter for code and returns the new count.
func (s *Store) RecordUse(code string) int {
	s.mu.Lock()
	s.usage[code]++
	count := s.usage[code]
	s.mu.Unlock()

	log.Debug().Str("code", code).Int("uses", count).Msg("Invite code used")
	return count
}

// Uses returns the current usage count for code.
func (s *Store) Uses(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[code]
}
