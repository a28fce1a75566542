package provider

import (
	"sync/atomic"
	"time"

	"github.com/hyperjump/tsunagu/internal/models"
)

// queryMetrics holds the provider's query counters. All fields are updated
// atomically so Search never takes a lock on the hot path.
type queryMetrics struct {
	queries    atomic.Int64
	successful atomic.Int64
	failed     atomic.Int64
	totalNanos atomic.Int64
	lastNanos  atomic.Int64
}

// record registers one completed query. Called exactly once per Search.
func (m *queryMetrics) record(elapsed time.Duration, ok bool) {
	m.queries.Add(1)
	if ok {
		m.successful.Add(1)
	} else {
		m.failed.Add(1)
	}
	m.totalNanos.Add(int64(elapsed))
	m.lastNanos.Store(int64(elapsed))
}

// snapshot returns a point-in-time copy. Times are reported in seconds.
func (m *queryMetrics) snapshot() models.MetricsSnapshot {
	queries := m.queries.Load()
	snap := models.MetricsSnapshot{
		Queries:           queries,
		SuccessfulQueries: m.successful.Load(),
		FailedQueries:     m.failed.Load(),
		LastQueryTime:     time.Duration(m.lastNanos.Load()).Seconds(),
	}
	if queries > 0 {
		snap.AvgQueryTime = time.Duration(m.totalNanos.Load()).Seconds() / float64(queries)
		snap.SuccessRate = float64(snap.SuccessfulQueries) / float64(queries)
	}
	return snap
}
