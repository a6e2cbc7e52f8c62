package client

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/logging"
	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/pkg/models"
)

// EventFetcher is anything that can run one events request.
type EventFetcher interface {
	FetchEvents(ctx context.Context, token string) ([]models.Event, error)
}

// BreakerConfig tunes BreakerFetcher.
type BreakerConfig struct {
	Name string

	// ConsecutiveFailures opens the circuit. Zero disables the breaker.
	ConsecutiveFailures uint32

	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:                "events-api",
		ConsecutiveFailures: 5,
		OpenTimeout:         time.Minute,
	}
}

// BreakerFetcher stops hammering a backend that keeps failing. Only network
// failures and 5xx answers count; a 401 is a verdict about the token, not
// about backend health. While open, calls fail fast with a *NetworkError so
// callers treat them like any other transient outage. It never retries.
type BreakerFetcher struct {
	next EventFetcher
	cb   *gobreaker.CircuitBreaker[[]models.Event]
}

func NewBreakerFetcher(next EventFetcher, cfg BreakerConfig) *BreakerFetcher {
	if cfg.Name == "" {
		cfg.Name = "events-api"
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	threshold := cfg.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker[[]models.Event](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return !countsAsOutage(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})

	return &BreakerFetcher{next: next, cb: cb}
}

func (b *BreakerFetcher) FetchEvents(ctx context.Context, token string) ([]models.Event, error) {
	events, err := b.cb.Execute(func() ([]models.Event, error) {
		return b.next.FetchEvents(ctx, token)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &NetworkError{Op: "fetch events", Err: err}
	}
	return events, err
}

// State exposes the breaker state for metrics.
func (b *BreakerFetcher) State() gobreaker.State {
	return b.cb.State()
}

func countsAsOutage(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if Classify(err) == KindNetwork {
		return true
	}
	var srvErr *ServerError
	return errors.As(err, &srvErr) && srvErr.StatusCode >= 500
}
