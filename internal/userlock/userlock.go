// Package userlock serialises work per user id. The Telegram bot and the
// HTTP chat handler share it so one user's agent turns never interleave
// within a transport.
package userlock

import "sync"

// Set hands out one mutex per user. Entries are removed when no caller
// holds or waits for them, so the set stays as small as the number of
// users with a turn in flight.
type Set struct {
	mu    sync.Mutex
	users map[int64]*entry
}

type entry struct {
	sync.Mutex
	refs int
}

// New returns an empty Set.
func New() *Set {
	return &Set{users: make(map[int64]*entry)}
}

// Lock blocks until userID's lock is held and returns its release.
// The release must be called exactly once.
func (s *Set) Lock(userID int64) (unlock func()) {
	s.mu.Lock()
	e, ok := s.users[userID]
	if !ok {
		e = &entry{}
		s.users[userID] = e
	}
	e.refs++
	s.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		s.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(s.users, userID)
		}
		s.mu.Unlock()
	}
}

// Len reports the number of users with a live entry.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
