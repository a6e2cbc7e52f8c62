// Package metrics exposes the state of the event sync as Prometheus metrics.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/harshpandeyz/Intelligent-Mob-Surveillance-System/internal/poller"
)

// Source is the poller view the collector reads; *poller.Scheduler satisfies it.
type Source interface {
	Snapshot() poller.Snapshot
	Stats() poller.Stats
}

// Breaker reports circuit state; *client.BreakerFetcher satisfies it.
type Breaker interface {
	State() gobreaker.State
}

var (
	upDesc = prometheus.NewDesc(
		"cctv_up", "Whether the last poll succeeded.", nil, nil,
	)
	pollerStateDesc = prometheus.NewDesc(
		"cctv_poller_state", "Poller state (0=stopped, 1=idle, 2=fetching).", nil, nil,
	)
	lastSuccessDesc = prometheus.NewDesc(
		"cctv_last_success_timestamp_seconds", "Unix time of the last successful poll.", nil, nil,
	)
	eventsDesc = prometheus.NewDesc(
		"cctv_events", "Events in the current collection.", []string{"camera", "type"}, nil,
	)
	pendingTxDesc = prometheus.NewDesc(
		"cctv_events_pending_tx", "Events whose ledger transaction is still pending.", nil, nil,
	)
	pollsDesc = prometheus.NewDesc(
		"cctv_polls_total", "Fetches started by the poller.", nil, nil,
	)
	pollResultsDesc = prometheus.NewDesc(
		"cctv_poll_results_total", "Poll outcomes grouped by result.", []string{"result"}, nil,
	)
	skippedTicksDesc = prometheus.NewDesc(
		"cctv_poll_skipped_ticks_total", "Ticks skipped because a fetch was still in flight.", nil, nil,
	)
	discardedDesc = prometheus.NewDesc(
		"cctv_poll_discarded_total", "Fetch results dropped because polling had stopped.", nil, nil,
	)
	breakerStateDesc = prometheus.NewDesc(
		"cctv_breaker_state", "Events API circuit breaker (0=closed, 1=half-open, 2=open).", nil, nil,
	)
)

type SyncCollector struct {
	Source  Source
	Breaker Breaker // optional
	Mutex   sync.Mutex
}

func NewSyncCollector(src Source, breaker Breaker) *SyncCollector {
	return &SyncCollector{Source: src, Breaker: breaker}
}

func (c *SyncCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- upDesc
	ch <- pollerStateDesc
	ch <- lastSuccessDesc
	ch <- eventsDesc
	ch <- pendingTxDesc
	ch <- pollsDesc
	ch <- pollResultsDesc
	ch <- skippedTicksDesc
	ch <- discardedDesc
	if c.Breaker != nil {
		ch <- breakerStateDesc
	}
}

func (c *SyncCollector) Collect(ch chan<- prometheus.Metric) {
	c.Mutex.Lock()
	defer c.Mutex.Unlock()

	snap := c.Source.Snapshot()
	stats := c.Source.Stats()

	up := 0.0
	if snap.State != poller.StateStopped && snap.Err == nil && !snap.UpdatedAt.IsZero() {
		up = 1.0
	}
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(pollerStateDesc, prometheus.GaugeValue, float64(snap.State))

	lastSuccess := 0.0
	if !snap.UpdatedAt.IsZero() {
		lastSuccess = float64(snap.UpdatedAt.UnixNano()) / float64(time.Second)
	}
	ch <- prometheus.MustNewConstMetric(lastSuccessDesc, prometheus.GaugeValue, lastSuccess)

	type key struct{ camera, typ string }
	counts := make(map[key]float64)
	pending := 0.0
	for _, e := range snap.Events {
		cam := e.CameraID
		if cam == "" {
			cam = "unknown"
		}
		typ := strings.ToLower(e.EventType)
		if typ == "" {
			typ = "unknown"
		}
		counts[key{cam, typ}]++
		if e.Pending() {
			pending++
		}
	}
	for k, cnt := range counts {
		ch <- prometheus.MustNewConstMetric(eventsDesc, prometheus.GaugeValue, cnt, k.camera, k.typ)
	}
	ch <- prometheus.MustNewConstMetric(pendingTxDesc, prometheus.GaugeValue, pending)

	ch <- prometheus.MustNewConstMetric(pollsDesc, prometheus.CounterValue, float64(stats.Fetches))
	ch <- prometheus.MustNewConstMetric(pollResultsDesc, prometheus.CounterValue, float64(stats.Successes), "success")
	ch <- prometheus.MustNewConstMetric(pollResultsDesc, prometheus.CounterValue, float64(stats.Unauthorized), "unauthorized")
	ch <- prometheus.MustNewConstMetric(pollResultsDesc, prometheus.CounterValue, float64(stats.NetworkErrs), "network")
	ch <- prometheus.MustNewConstMetric(pollResultsDesc, prometheus.CounterValue, float64(stats.UnknownErrs), "unknown")
	ch <- prometheus.MustNewConstMetric(skippedTicksDesc, prometheus.CounterValue, float64(stats.SkippedTicks))
	ch <- prometheus.MustNewConstMetric(discardedDesc, prometheus.CounterValue, float64(stats.Discarded))

	if c.Breaker != nil {
		ch <- prometheus.MustNewConstMetric(breakerStateDesc, prometheus.GaugeValue, breakerValue(c.Breaker.State()))
	}
}

func breakerValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
