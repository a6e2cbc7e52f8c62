package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

type fakeFetcher struct {
	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	tokens      []string

	// respond builds the result of call n (1-based).
	respond func(n int) ([]models.Event, error)
	// release, when set, holds every fetch until it is closed or receives.
	release chan struct{}
}

func (f *fakeFetcher) FetchEvents(ctx context.Context, token string) ([]models.Event, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.tokens = append(f.tokens, token)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(n)
	}
	return []models.Event{}, nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeFetcher) Token(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[i]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewSchedulerDefaults(t *testing.T) {
	t.Parallel()

	s := New(session.NewStore(nil), &fakeFetcher{}, Config{})
	if s.config.Interval != 10*time.Second {
		t.Errorf("interval = %v, want 10s", s.config.Interval)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %v, want stopped", s.State())
	}
	if snap := s.Snapshot(); snap.Events == nil || len(snap.Events) != 0 {
		t.Errorf("expected empty collection, got %#v", snap.Events)
	}
}

func TestSchedulerStaysStoppedWithoutToken(t *testing.T) {
	t.Parallel()

	f := &fakeFetcher{}
	s := New(session.NewStore(nil), f, Config{Interval: 5 * time.Millisecond})
	s.Attach()
	defer s.Close()

	time.Sleep(40 * time.Millisecond)
	if f.Calls() != 0 {
		t.Fatalf("fetched %d times while logged out", f.Calls())
	}
	if s.State() != StateStopped {
		t.Fatalf("state = %v, want stopped", s.State())
	}
}

func TestSchedulerStartsOnLoginWithImmediateFetch(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	f := &fakeFetcher{respond: func(int) ([]models.Event, error) {
		return []models.Event{{CameraID: "cam1"}}, nil
	}}
	s := New(store, f, Config{Interval: time.Hour})
	s.Attach()
	defer s.Close()

	if err := store.Set("tok"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	waitFor(t, "first fetch", func() bool { return len(s.Snapshot().Events) == 1 })

	if f.Calls() != 1 {
		t.Fatalf("calls = %d, want 1 (interval is an hour)", f.Calls())
	}
	if got := f.Token(0); got != "tok" {
		t.Fatalf("fetch used token %q", got)
	}
	if s.State() != StateIdle {
		t.Fatalf("state = %v, want idle", s.State())
	}
}

func TestSchedulerAttachWithExistingToken(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("already")
	f := &fakeFetcher{}
	s := New(store, f, Config{Interval: time.Hour})
	s.Attach()
	defer s.Close()

	waitFor(t, "fetch", func() bool { return f.Calls() == 1 })
}

func TestSchedulerRepeatsOnInterval(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("tok")
	f := &fakeFetcher{}
	s := New(store, f, Config{Interval: 5 * time.Millisecond})
	s.Attach()
	defer s.Close()

	waitFor(t, "several polls", func() bool { return f.Calls() >= 3 })
}

func TestSchedulerAtMostOneFetchInFlight(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("tok")
	f := &fakeFetcher{release: make(chan struct{})}
	s := New(store, f, Config{Interval: 2 * time.Millisecond})
	s.Attach()
	defer s.Close()

	waitFor(t, "first fetch", func() bool { return f.Calls() == 1 })
	// Many ticks pass while the fetch hangs.
	waitFor(t, "skipped ticks", func() bool { return s.Stats().SkippedTicks >= 5 })

	if f.Calls() != 1 {
		t.Fatalf("calls = %d while first fetch in flight, want 1", f.Calls())
	}
	if s.State() != StateFetching {
		t.Fatalf("state = %v, want fetching", s.State())
	}

	// Let the first one finish; the next tick may start exactly one more.
	f.release <- struct{}{}
	waitFor(t, "second fetch", func() bool { return f.Calls() == 2 })
	time.Sleep(20 * time.Millisecond)
	if f.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", f.Calls())
	}
	if f.MaxInFlight() != 1 {
		t.Fatalf("max in flight = %d, want 1", f.MaxInFlight())
	}

	close(f.release)
}

func TestSchedulerUnauthorizedClearsSessionAndStops(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("expired")
	f := &fakeFetcher{respond: func(int) ([]models.Event, error) {
		return nil, fmt.Errorf("fetch events: %w", client.ErrUnauthorized)
	}}
	s := New(store, f, Config{Interval: 2 * time.Millisecond})
	s.Attach()
	defer s.Close()

	waitFor(t, "stop", func() bool { return s.State() == StateStopped })

	if _, ok := store.Get(); ok {
		t.Fatal("session should be cleared after 401")
	}
	time.Sleep(30 * time.Millisecond)
	if f.Calls() != 1 {
		t.Fatalf("calls = %d after 401, want 1", f.Calls())
	}
	if got := s.Stats().Unauthorized; got != 1 {
		t.Fatalf("unauthorized count = %d, want 1", got)
	}
}

func TestSchedulerClearStopsAndLoginRestarts(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("first")
	f := &fakeFetcher{}
	s := New(store, f, Config{Interval: 2 * time.Millisecond})
	s.Attach()
	defer s.Close()

	waitFor(t, "polling", func() bool { return f.Calls() >= 2 })

	_ = store.Clear()
	if s.State() != StateStopped {
		t.Fatalf("state after Clear = %v, want stopped", s.State())
	}
	// Clear is synchronous: at most a fetch already in flight may land.
	time.Sleep(10 * time.Millisecond)
	after := f.Calls()
	time.Sleep(30 * time.Millisecond)
	if f.Calls() != after {
		t.Fatalf("fetches continued after Clear: %d -> %d", after, f.Calls())
	}

	_ = store.Set("second")
	waitFor(t, "restart", func() bool { return f.Calls() > after })

	f.mu.Lock()
	last := f.tokens[len(f.tokens)-1]
	f.mu.Unlock()
	if last != "second" {
		t.Fatalf("restarted with token %q, want second", last)
	}
}

func TestSchedulerTransientErrorKeepsPreviousEvents(t *testing.T) {
	t.Parallel()

	netErr := &client.NetworkError{Op: "fetch events", Err: errors.New("connection refused")}
	srvErr := &client.ServerError{Op: "fetch events", StatusCode: 500, Detail: "boom"}

	store := session.NewStore(nil)
	_ = store.Set("tok")
	step := make(chan struct{})
	f := &fakeFetcher{release: step, respond: func(n int) ([]models.Event, error) {
		switch n {
		case 1:
			return []models.Event{{CameraID: "cam1"}}, nil
		case 2:
			return nil, netErr
		case 3:
			return nil, srvErr
		default:
			return []models.Event{{CameraID: "cam2"}, {CameraID: "cam3"}}, nil
		}
	}}
	s := New(store, f, Config{Interval: time.Millisecond})
	s.Attach()
	defer func() {
		close(step)
		s.Close()
	}()

	step <- struct{}{}
	waitFor(t, "first success", func() bool { return len(s.Snapshot().Events) == 1 })

	step <- struct{}{}
	waitFor(t, "network failure", func() bool { return s.Snapshot().Err != nil })
	snap := s.Snapshot()
	if len(snap.Events) != 1 || snap.Events[0].CameraID != "cam1" {
		t.Fatalf("previous collection lost on network error: %+v", snap.Events)
	}
	if client.Classify(snap.Err) != client.KindNetwork {
		t.Fatalf("error kind = %v, want network", client.Classify(snap.Err))
	}
	if _, ok := store.Get(); !ok {
		t.Fatal("network error must not clear the session")
	}

	step <- struct{}{}
	waitFor(t, "server failure", func() bool {
		return client.Classify(s.Snapshot().Err) == client.KindUnknown
	})
	if len(s.Snapshot().Events) != 1 {
		t.Fatal("previous collection lost on unknown error")
	}

	step <- struct{}{}
	waitFor(t, "recovery", func() bool { return len(s.Snapshot().Events) == 2 })
	if s.Snapshot().Err != nil {
		t.Fatalf("error indicator should clear on success, got %v", s.Snapshot().Err)
	}
	if s.Snapshot().UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt should be set after a success")
	}
}

func TestSchedulerCloseDiscardsInFlightResult(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("tok")
	release := make(chan struct{})
	f := &fakeFetcher{release: release, respond: func(int) ([]models.Event, error) {
		return []models.Event{{CameraID: "late"}}, nil
	}}
	s := New(store, f, Config{Interval: time.Hour})
	s.Attach()

	waitFor(t, "fetch in flight", func() bool { return f.Calls() == 1 })

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close waited for the in-flight fetch")
	}

	close(release)
	waitFor(t, "discard", func() bool { return s.Stats().Discarded == 1 })

	snap := s.Snapshot()
	if snap.State != StateStopped {
		t.Fatalf("state = %v, want stopped", snap.State)
	}
	if len(snap.Events) != 0 {
		t.Fatalf("late result applied after teardown: %+v", snap.Events)
	}
	if _, ok := store.Get(); !ok {
		t.Fatal("teardown must not clear the session")
	}
}

func TestSchedulerCloseCancelsFetchContext(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("tok")
	started := make(chan struct{})
	canceled := make(chan struct{})
	f := fetcherFunc(func(ctx context.Context, token string) ([]models.Event, error) {
		close(started)
		<-ctx.Done()
		close(canceled)
		return nil, ctx.Err()
	})
	s := New(store, f, Config{Interval: time.Hour})
	s.Attach()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("fetch never started")
	}
	s.Close()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("fetch context not canceled on teardown")
	}
}

func TestSchedulerOnUpdateAndWait(t *testing.T) {
	t.Parallel()

	store := session.NewStore(nil)
	_ = store.Set("tok")
	f := &fakeFetcher{respond: func(n int) ([]models.Event, error) {
		if n >= 2 {
			return nil, client.ErrUnauthorized
		}
		return []models.Event{{CameraID: "cam1"}}, nil
	}}
	s := New(store, f, Config{Interval: 5 * time.Millisecond})

	var mu sync.Mutex
	var states []State
	remove := s.OnUpdate(func(snap Snapshot) {
		mu.Lock()
		states = append(states, snap.State)
		mu.Unlock()
	})
	defer remove()

	s.Attach()
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("Wait = %v, want ErrStopped", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 3 {
		t.Fatalf("expected several updates, got %v", states)
	}
	if states[0] != StateIdle || states[len(states)-1] != StateStopped {
		t.Fatalf("unexpected state sequence %v", states)
	}
}

type fetcherFunc func(ctx context.Context, token string) ([]models.Event, error)

func (f fetcherFunc) FetchEvents(ctx context.Context, token string) ([]models.Event, error) {
	return f(ctx, token)
}
