// Package server is the read-only HTTP surface of the exporter.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/filter"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/poller"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// Source is the poller view served over HTTP.
type Source interface {
	Snapshot() poller.Snapshot
}

type eventsResponse struct {
	State     string          `json:"state"`
	Count     int             `json:"count"`
	Total     int             `json:"total"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Error     string          `json:"error,omitempty"`
	Filter    filter.Criteria `json:"filter"`
	Events    []models.Event  `json:"events"`
}

type healthResponse struct {
	Status string `json:"status"`
	Poller string `json:"poller"`
	Error  string `json:"error,omitempty"`
}

// NewRouter serves /healthz, /events and, when gatherer is set, /metrics.
func NewRouter(src Source, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", healthHandler(src))
	r.Get("/events", eventsHandler(src))
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func healthHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := src.Snapshot()
		resp := healthResponse{Status: "ok", Poller: snap.State.String()}
		status := http.StatusOK

		if snap.State == poller.StateStopped {
			resp.Status = "logged_out"
			status = http.StatusServiceUnavailable
		} else if snap.Err != nil {
			resp.Status = "degraded"
			resp.Error = snap.Err.Error()
		}
		writeJSON(w, status, resp)
	}
}

// eventsHandler serves the current collection, filtered by the camera, type
// and date query parameters.
func eventsHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := src.Snapshot()
		criteria := filter.FromQuery(r.URL.Query())
		visible := filter.Apply(snap.Events, criteria)

		resp := eventsResponse{
			State:  snap.State.String(),
			Count:  len(visible),
			Total:  len(snap.Events),
			Filter: criteria,
			Events: visible,
		}
		if !snap.UpdatedAt.IsZero() {
			t := snap.UpdatedAt.UTC()
			resp.UpdatedAt = &t
		}
		if snap.Err != nil {
			resp.Error = snap.Err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}
