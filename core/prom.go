package core

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	promNamespace = "actorbench"
	promSubsystem = "runtime"
)

// metrics are the per-runtime prometheus collectors. A nil *metrics is valid
// and records nothing.
type metrics struct {
	registerer prom.Registerer
	once       sync.Once

	spawned   *prom.CounterVec
	destroyed *prom.CounterVec
	delivered prom.Counter
	dropped   prom.Counter
	receive   *prom.HistogramVec
}

func newMetrics(reg prom.Registerer, runID string) *metrics {
	if reg == nil {
		return nil
	}
	m := &metrics{
		registerer: prom.WrapRegistererWith(prom.Labels{"run": runID}, reg),
		spawned: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "actors_spawned_total",
			Help:      "actors created, by kind",
		}, []string{"kind"}),
		destroyed: prom.NewCounterVec(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "actors_destroyed_total",
			Help:      "actors destroyed, by kind",
		}, []string{"kind"}),
		delivered: prom.NewCounter(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "messages_delivered_total",
			Help:      "messages handed to a behavior",
		}),
		dropped: prom.NewCounter(prom.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "messages_dropped_total",
			Help:      "messages addressed to unknown or destroyed actors",
		}),
		receive: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "receive_seconds",
			Help:      "timings for behavior receive calls",
			Buckets:   prom.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"kind"}),
	}
	m.registerer.MustRegister(m.spawned, m.destroyed, m.delivered, m.dropped, m.receive)
	return m
}

func (m *metrics) spawn(kind string) {
	if m == nil {
		return
	}
	m.spawned.WithLabelValues(kind).Inc()
}

func (m *metrics) destroy(kind string) {
	if m == nil {
		return
	}
	m.destroyed.WithLabelValues(kind).Inc()
}

func (m *metrics) drop(n int) {
	if m == nil {
		return
	}
	m.dropped.Add(float64(n))
}

func (m *metrics) time(kind string) (end func()) {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.delivered.Inc()
		m.receive.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func (m *metrics) unregister() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		m.registerer.Unregister(m.spawned)
		m.registerer.Unregister(m.destroyed)
		m.registerer.Unregister(m.delivered)
		m.registerer.Unregister(m.dropped)
		m.registerer.Unregister(m.receive)
	})
}
