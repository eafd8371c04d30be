package kd

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	inserts       prometheus.Counter
	insertErrors  prometheus.Counter
	queries       prometheus.Counter
	leavesVisited prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spatial",
			Subsystem: "kd",
			Name:      "inserts_total",
			Help:      "Points inserted into the kd index.",
		}),
		insertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spatial",
			Subsystem: "kd",
			Name:      "insert_errors_total",
			Help:      "Rejected kd index inserts.",
		}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "spatial",
			Subsystem: "kd",
			Name:      "queries_total",
			Help:      "Nearest-neighbour queries answered by the kd index.",
		}),
		leavesVisited: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spatial",
			Subsystem: "kd",
			Name:      "query_leaves_visited",
			Help:      "Leaves scanned per nearest-neighbour query.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.inserts, err = register(reg, m.inserts); err != nil {
		return nil, err
	}
	if m.insertErrors, err = register(reg, m.insertErrors); err != nil {
		return nil, err
	}
	if m.queries, err = register(reg, m.queries); err != nil {
		return nil, err
	}
	if m.leavesVisited, err = register(reg, m.leavesVisited); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the already registered collector when an identical one
// exists, so several indexes can share a registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}
