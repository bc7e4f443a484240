package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

// Entry is the filter state of one browser session.
type Entry struct {
	State    filter.State
	LastSeen time.Time
}

// Store keeps per-session filter state in memory. Sessions never share
// state and idle ones are evicted by Sweep.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
	onCount func(delta int64)
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCountObserver is called with +1 or -n whenever sessions are created
// or removed.
func WithCountObserver(fn func(delta int64)) Option {
	return func(s *Store) { s.onCount = fn }
}

// NewStore creates a store whose entries expire after ttl of inactivity.
func NewStore(ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
		onCount: func(int64) {},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns a copy of the state for id and refreshes its idle timer.
func (s *Store) Get(id string) (filter.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return filter.State{}, false
	}
	e.LastSeen = s.now()
	return e.State.Clone(), true
}

// Put stores state for id.
func (s *Store) Put(id string, state filter.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(id, state)
}

func (s *Store) putLocked(id string, state filter.State) {
	if e, ok := s.entries[id]; ok {
		e.State = state.Clone()
		e.LastSeen = s.now()
		return
	}
	s.entries[id] = &Entry{State: state.Clone(), LastSeen: s.now()}
	s.onCount(1)
}

// Update runs fn on the current state of id under the store lock and saves
// the result unless fn fails. A missing session starts from init().
func (s *Store) Update(id string, init func() filter.State, fn func(filter.State) (filter.State, error)) (filter.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current filter.State
	if e, ok := s.entries[id]; ok {
		current = e.State.Clone()
	} else {
		current = init()
	}

	next, err := fn(current)
	if err != nil {
		if e, ok := s.entries[id]; ok {
			e.LastSeen = s.now()
		}
		return current, err
	}
	s.putLocked(id, next)
	return next.Clone(), nil
}

// Delete removes id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		delete(s.entries, id)
		s.onCount(-1)
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.LastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.onCount(-int64(removed))
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				logger.InfoContext(ctx, "expired sessions evicted",
					slog.Int("evicted", n),
					slog.Int("remaining", s.Len()))
			}
		}
	}
}
