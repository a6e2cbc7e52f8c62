// Package poller keeps the local event collection in sync with the backend.
//
// The Scheduler is gated by the session store: it starts when a token
// appears and stops when the token is cleared. While running it owns a
// single ticker and never has more than one fetch in flight.
//
//	Stopped --token set--> Idle --tick--> Fetching --result--> Idle
//	Fetching --401--> store.Clear() --> Stopped
//	any --Close/token cleared--> Stopped
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// DefaultInterval matches the dashboard's refresh cadence.
const DefaultInterval = 10 * time.Second

type State int

const (
	StateStopped State = iota
	StateIdle
	StateFetching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	default:
		return "stopped"
	}
}

// Fetcher runs one events request; *client.Client satisfies it.
type Fetcher interface {
	FetchEvents(ctx context.Context, token string) ([]models.Event, error)
}

type Config struct {
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{Interval: DefaultInterval}
}

// Snapshot is what views render. Events is shared, read only.
type Snapshot struct {
	State     State
	Events    []models.Event
	Err       error     // last Network/Unknown failure, nil after a success
	UpdatedAt time.Time // last successful fetch
}

// Stats are cumulative counters since the Scheduler was created.
type Stats struct {
	Fetches      uint64
	Successes    uint64
	Unauthorized uint64
	NetworkErrs  uint64
	UnknownErrs  uint64
	SkippedTicks uint64 // ticks that found a fetch still in flight
	Discarded    uint64 // results that arrived after a stop
}

type listener struct {
	id int
	fn func(Snapshot)
}

type Scheduler struct {
	store   *session.Store
	fetcher Fetcher
	config  Config
	log     zerolog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	events     []models.Event
	lastErr    error
	updatedAt  time.Time
	stats      Stats
	stopChan   chan struct{}
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	// publishMu serializes deliveries so listeners never see a stale
	// snapshot after a newer one.
	publishMu  sync.Mutex
	listenerMu sync.Mutex
	listeners  []listener
	nextID     int

	unsubscribe func()
}

func New(store *session.Store, fetcher Fetcher, config Config) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Scheduler{
		store:   store,
		fetcher: fetcher,
		config:  config,
		log:     logging.With("poller"),
		events:  []models.Event{},
	}
}

// Attach subscribes to the session store and starts polling right away if a
// token is already present.
func (s *Scheduler) Attach() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	s.unsubscribe = s.store.Subscribe(s.onSessionChange)
	s.mu.Unlock()

	if _, ok := s.store.Get(); ok {
		s.start()
	}
}

// Close is the explicit teardown: it detaches from the store, stops the
// ticker and waits for the loop goroutine. An in-flight fetch is canceled,
// not awaited.
func (s *Scheduler) Close() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.stop()
	s.wg.Wait()
}

// OnUpdate registers fn to receive a snapshot after every applied result and
// every state change. fn runs on the scheduler's goroutines, never under its
// state lock, and must not stop the scheduler (Close, store.Clear).
func (s *Scheduler) OnUpdate(fn func(Snapshot)) (remove func()) {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scheduler) snapshotLocked() Snapshot {
	return Snapshot{
		State:     s.state,
		Events:    s.events,
		Err:       s.lastErr,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scheduler) onSessionChange(c session.Change) {
	switch {
	case c.Started():
		s.start()
	case c.Ended():
		s.stop()
	}
}

// start moves Stopped -> Idle and launches the loop. No-op when running.
func (s *Scheduler) start() {
	s.mu.Lock()
	if s.state != StateStopped {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.state = StateIdle
	s.generation++
	// A new session must not show what the previous one fetched.
	s.events = []models.Event{}
	s.lastErr = nil
	s.updatedAt = time.Time{}
	gen := s.generation
	s.stopChan = make(chan struct{})
	s.cancel = cancel
	stopChan := s.stopChan
	snap := s.snapshotLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.config.Interval).Msg("Starting event poller")
	s.publish(gen, snap)

	go s.loop(ctx, gen, stopChan)
}

// stop moves any state to Stopped. The ticker is released synchronously by
// closing stopChan; a fetch still in flight has its context canceled and its
// result is dropped because the generation moved on.
func (s *Scheduler) stop() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	s.generation++
	gen := s.generation
	close(s.stopChan)
	s.cancel()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info().Msg("Event poller stopped")
	s.publish(gen, snap)
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, stopChan <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.tick(ctx, gen)

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			s.tick(ctx, gen)
		}
	}
}

// tick starts a fetch unless one is already in flight; overlapping ticks are
// dropped, not queued.
func (s *Scheduler) tick(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.state == StateFetching {
		s.stats.SkippedTicks++
		s.mu.Unlock()
		s.log.Debug().Msg("Previous fetch still running, skipping tick")
		return
	}
	token, ok := s.store.Get()
	if !ok {
		s.mu.Unlock()
		// Cleared without us hearing about it yet; the store notification will stop us.
		return
	}
	s.state = StateFetching
	s.stats.Fetches++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(gen, snap)

	go s.fetch(ctx, gen, token)
}

func (s *Scheduler) fetch(ctx context.Context, gen uint64, token string) {
	started := time.Now()
	events, err := s.fetcher.FetchEvents(ctx, token)
	kind := client.Classify(err)

	s.mu.Lock()
	if gen != s.generation {
		s.stats.Discarded++
		s.mu.Unlock()
		s.log.Debug().Err(err).Msg("Discarding fetch result after stop")
		return
	}

	switch kind {
	case client.KindNone:
		if events == nil {
			events = []models.Event{}
		}
		s.events = events
		s.lastErr = nil
		s.updatedAt = time.Now()
		s.state = StateIdle
		s.stats.Successes++
	case client.KindUnauthorized:
		s.stats.Unauthorized++
		// Leave state as Fetching; Clear below drives us to Stopped.
	case client.KindNetwork:
		s.lastErr = err
		s.state = StateIdle
		s.stats.NetworkErrs++
	default:
		s.lastErr = err
		s.state = StateIdle
		s.stats.UnknownErrs++
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if kind == client.KindUnauthorized {
		s.log.Warn().Err(err).Msg("Session rejected by backend, clearing session")
		if cerr := s.store.Clear(); cerr != nil {
			s.log.Error().Err(cerr).Msg("Failed to clear session")
		}
		// The store notifies us when it held a token; stop anyway in case
		// it was already cleared by someone else.
		s.stop()
		return
	}

	if err != nil {
		s.log.Warn().Err(err).Str("kind", kind.String()).Dur("took", time.Since(started)).Msg("Poll failed, keeping previous events")
	} else {
		s.log.Debug().Int("events", len(snap.Events)).Dur("took", time.Since(started)).Msg("Poll finished")
	}

	s.publish(gen, snap)
}

// publish delivers snap unless the scheduler has moved past generation gen.
func (s *Scheduler) publish(gen uint64, snap Snapshot) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if gen != current {
		return
	}

	s.listenerMu.Lock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.listenerMu.Unlock()

	for _, l := range ls {
		l.fn(snap)
	}
}

// ErrStopped is reported by Wait when the scheduler stopped before ctx ended.
var ErrStopped = errors.New("poller stopped")

// Wait blocks until ctx is done or the scheduler reaches Stopped.
func (s *Scheduler) Wait(ctx context.Context) error {
	done := make(chan struct{}, 1)
	remove := s.OnUpdate(func(snap Snapshot) {
		if snap.State == StateStopped {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer remove()

	if s.State() == StateStopped {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrStopped
	}
}
