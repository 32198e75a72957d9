// Package metrics exposes Prometheus metrics for the scraper.
//
// Every recording method is safe on a nil *Metrics, so components can be
// built without a registry in tests and tools.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects scraper metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	Cycles            *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	Snapshots         *prometheus.CounterVec
	GamesCreated      *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	StaleWarnings     prometheus.Counter
	ForcedConclusions prometheus.Counter
	BucketSize        *prometheus.GaugeVec
	OddsQuota         *prometheus.GaugeVec
	SinkFailures      *prometheus.CounterVec
	NotifyFailures    *prometheus.CounterVec
	Restarts          prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlb_scraper_cycles_total",
				Help: "Poll cycles run, by result",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mlb_scraper_cycle_duration_seconds",
				Help:    "Wall time of one poll cycle",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
			},
		),
		Snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlb_scraper_snapshots_total",
				Help: "Scoreboard cards seen, by stage and routing action",
			},
			[]string{"stage", "action"},
		),
		GamesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlb_scraper_games_created_total",
				Help: "Games created, by the bucket they were created in",
			},
			[]string{"bucket"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlb_scraper_transitions_total",
				Help: "Bucket transitions",
			},
			[]string{"from", "to"},
		),
		StaleWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlb_scraper_stale_warnings_total",
			Help: "Live games reported as not updated for too long",
		}),
		ForcedConclusions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlb_scraper_forced_conclusions_total",
			Help: "Live games moved to concluded without a final card",
		}),
		BucketSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mlb_scraper_bucket_games",
				Help: "Games currently held per bucket",
			},
			[]string{"bucket"},
		),
		OddsQuota: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mlb_scraper_odds_requests",
				Help: "Odds API request quota as reported by the provider",
			},
			[]string{"kind"},
		),
		SinkFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlb_scraper_sink_failures_total",
				Help: "Failed dumps, by sink and operation",
			},
			[]string{"sink", "op"},
		),
		NotifyFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlb_scraper_notify_failures_total",
				Help: "Notifications that could not be delivered",
			},
			[]string{"notifier"},
		),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlb_scraper_restarts_total",
			Help: "Scrape loop restarts after a fatal error",
		}),
	}
	m.registry.MustRegister(
		m.Cycles,
		m.CycleDuration,
		m.Snapshots,
		m.GamesCreated,
		m.Transitions,
		m.StaleWarnings,
		m.ForcedConclusions,
		m.BucketSize,
		m.OddsQuota,
		m.SinkFailures,
		m.NotifyFailures,
		m.Restarts,
	)
	return m
}

// Registry returns the prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordCycle records a finished cycle.
func (m *Metrics) RecordCycle(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Cycles.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordSnapshot(stage, action string) {
	if m == nil {
		return
	}
	m.Snapshots.WithLabelValues(stage, action).Inc()
}

func (m *Metrics) RecordCreated(bucket string) {
	if m == nil {
		return
	}
	m.GamesCreated.WithLabelValues(bucket).Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

// RecordStale records one staleness finding.
func (m *Metrics) RecordStale(concluded bool) {
	if m == nil {
		return
	}
	if concluded {
		m.ForcedConclusions.Inc()
		return
	}
	m.StaleWarnings.Inc()
}

func (m *Metrics) SetBucketSize(bucket string, n int) {
	if m == nil {
		return
	}
	m.BucketSize.WithLabelValues(bucket).Set(float64(n))
}

// SetOddsQuota records the provider's request counters. Negative values mean unknown.
func (m *Metrics) SetOddsQuota(remaining, used int) {
	if m == nil || remaining < 0 {
		return
	}
	m.OddsQuota.WithLabelValues("remaining").Set(float64(remaining))
	m.OddsQuota.WithLabelValues("used").Set(float64(used))
}

func (m *Metrics) RecordSinkFailure(sink, op string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink, op).Inc()
}

func (m *Metrics) RecordNotifyFailure(notifier string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(notifier).Inc()
}

func (m *Metrics) RecordRestart() {
	if m == nil {
		return
	}
	m.Restarts.Inc()
}
