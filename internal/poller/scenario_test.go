package poller

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/client"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/filter"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/session"
)

// backend mimics the dashboard API: admin/admin123 logs in, /events
// answers with one loitering event, or 401 once revoked is set.
func backend(t *testing.T, eventCalls *atomic.Int32, revoked *atomic.Bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("username") != "admin" || r.PostForm.Get("password") != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"good-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		eventCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if revoked.Load() || r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `[{"camera_id":"cam1","event_type":"loitering","confidence":0.92,"start_time":"2024-01-01T10:00:00Z","tx_hash":"0xabc"}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScenarioLoginThenFirstPoll(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var revoked atomic.Bool
	srv := backend(t, &calls, &revoked)

	api := client.New(client.ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	store := session.NewStore(nil)
	s := New(store, api, Config{Interval: time.Hour})
	s.Attach()
	defer s.Close()

	token, err := api.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := store.Set(token); err != nil {
		t.Fatalf("store token: %v", err)
	}

	waitFor(t, "first poll", func() bool { return len(s.Snapshot().Events) == 1 })

	visible := filter.Apply(s.Snapshot().Events, filter.Criteria{})
	if len(visible) != 1 {
		t.Fatalf("expected exactly one displayed entry, got %d", len(visible))
	}
	e := visible[0]
	if e.ConfidenceString() != "0.92" {
		t.Fatalf("confidence = %q, want 0.92", e.ConfidenceString())
	}
	if e.TxStatus() != "0xabc" {
		t.Fatalf("tx = %q, want 0xabc", e.TxStatus())
	}
}

func TestScenarioUnauthorizedPollStopsPolling(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var revoked atomic.Bool
	revoked.Store(true)
	srv := backend(t, &calls, &revoked)

	api := client.New(client.ClientConfig{BaseURL: srv.URL, Timeout: time.Second})
	store := session.NewStore(nil)
	_ = store.Set("good-token")

	s := New(store, api, Config{Interval: 5 * time.Millisecond})
	s.Attach()
	defer s.Close()

	waitFor(t, "scheduler stop", func() bool { return s.State() == StateStopped })
	if _, ok := store.Get(); ok {
		t.Fatal("session should be cleared")
	}

	time.Sleep(50 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("/events called %d times, want 1", got)
	}

	// A fresh login resumes polling.
	revoked.Store(false)
	token, err := api.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	_ = store.Set(token)
	waitFor(t, "polling resumed", func() bool { return calls.Load() > 1 })
}
