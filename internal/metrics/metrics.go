// Package metrics exposes Prometheus collectors for ledger operations and
// the persistence layer.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/persistence"
)

const namespace = "economy"

// Collector owns a private registry so tests and multiple instances never
// collide on the global one.
type Collector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	commits    *prometheus.HistogramVec
}

// New builds a Collector with Go runtime and process collectors attached.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by name and outcome.",
			},
			[]string{"op", "result"},
		),
		commits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "persistence",
				Name:      "commit_duration_seconds",
				Help:      "Duration of durable commits by store and status.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"store", "status"},
		),
	}
	c.registry.MustRegister(
		c.operations,
		c.commits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry to serve on /metrics.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// RecordOperation implements ledger.Recorder.
func (c *Collector) RecordOperation(op string, err error) {
	c.operations.WithLabelValues(op, Outcome(err)).Inc()
}

// TrackGauge registers a gauge whose value is read from fn at scrape time.
func (c *Collector) TrackGauge(subsystem, name, help string, fn func() float64) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// Outcome maps an operation error onto a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ledger.ErrSelfTransfer):
		return "self_transfer"
	case errors.Is(err, ledger.ErrInvalidOrRedeemedToken):
		return "invalid_note"
	case errors.Is(err, ledger.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}

// InstrumentBackend wraps b so every Commit is timed under the store label.
func (c *Collector) InstrumentBackend(store string, b persistence.Backend) persistence.Backend {
	return &instrumentedBackend{Backend: b, store: store, commits: c.commits}
}

type instrumentedBackend struct {
	persistence.Backend
	store   string
	commits *prometheus.HistogramVec
}

func (b *instrumentedBackend) Commit(ctx context.Context, state map[string]money.Amount, changes ...persistence.Change) error {
	start := time.Now()
	err := b.Backend.Commit(ctx, state, changes...)
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.commits.WithLabelValues(b.store, status).Observe(time.Since(start).Seconds())
	return err
}
