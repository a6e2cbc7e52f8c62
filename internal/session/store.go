// Package session holds the bearer token of the current login.
//
// The Store is the single source of truth for the authenticated state.
// Login, logout and the handlers of an authorization failure are its only
// writers; everything else reads it. Dependents learn about transitions
// through Subscribe.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrEmptyToken is returned by Set for an empty token. Use Clear to log out.
	ErrEmptyToken = errors.New("session: empty token")

	// ErrNoSession means an authenticated call was attempted while logged out.
	ErrNoSession = errors.New("not logged in")
)

// Persister keeps the token across process restarts.
type Persister interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Change describes a token transition delivered to subscribers.
type Change struct {
	Token    string
	Present  bool
	Previous bool // whether a token was present before
}

// Started reports an absent to present transition.
func (c Change) Started() bool { return c.Present && !c.Previous }

// Ended reports a present to absent transition.
func (c Change) Ended() bool { return !c.Present && c.Previous }

type Store struct {
	mu      sync.RWMutex
	token   string
	persist Persister

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// NewStore creates an empty store. A nil Persister keeps the token in memory only.
func NewStore(p Persister) *Store {
	return &Store{
		persist: p,
		subs:    make(map[int]func(Change)),
	}
}

// Load reads the persisted token once, at startup. Subscribers are notified
// if it yields a session.
func (s *Store) Load() error {
	if s.persist == nil {
		return nil
	}
	token, err := s.persist.Load()
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if token == "" {
		return nil
	}

	s.mu.Lock()
	prev := s.token != ""
	s.token = token
	s.mu.Unlock()

	s.notify(Change{Token: token, Present: true, Previous: prev})
	return nil
}

// Get returns the token and whether one is present.
func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Set stores a new token, persists it and notifies subscribers.
func (s *Store) Set(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	prev := s.token
	s.token = token
	s.mu.Unlock()

	var err error
	if s.persist != nil {
		if perr := s.persist.Save(token); perr != nil {
			err = fmt.Errorf("persist session: %w", perr)
		}
	}

	if prev != token {
		s.notify(Change{Token: token, Present: true, Previous: prev != ""})
	}
	return err
}

// Clear drops the token. It is idempotent: subscribers only hear about the
// present to absent transition, once.
func (s *Store) Clear() error {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	s.mu.Unlock()

	var err error
	if s.persist != nil {
		if perr := s.persist.Clear(); perr != nil {
			err = fmt.Errorf("clear persisted session: %w", perr)
		}
	}

	if had {
		s.notify(Change{Present: false, Previous: true})
	}
	return err
}

// Subscribe registers fn for token transitions. Callbacks run synchronously on
// the writer's goroutine, outside the store lock, in subscription order.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Change), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
