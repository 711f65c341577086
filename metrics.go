package tokenvault

import "sync/atomic"

// MetricID identifies a specific counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure
	// MetricPairIssued counts issued access+refresh pairs.
	MetricPairIssued
	// MetricRefreshSuccess counts successful refresh rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed refresh attempts.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts refresh attempts with a revoked or
	// already-rotated token.
	MetricRefreshReuseDetected
	// MetricAccessVerified counts successful stateless access validations.
	MetricAccessVerified
	// MetricAccessRejected counts rejected access validations.
	MetricAccessRejected
	// MetricLogout counts logout operations.
	MetricLogout
	// MetricLogoutAll counts logout-all operations.
	MetricLogoutAll
	// MetricResetRequest counts password reset token issuances.
	MetricResetRequest
	// MetricResetConfirmSuccess counts completed password resets.
	MetricResetConfirmSuccess
	// MetricResetConfirmFailure counts rejected password reset confirmations.
	MetricResetConfirmFailure
	// MetricVerifyEmailRequest counts email verification token issuances.
	MetricVerifyEmailRequest
	// MetricVerifyEmailConfirmSuccess counts completed email verifications.
	MetricVerifyEmailConfirmSuccess
	// MetricVerifyEmailConfirmFailure counts rejected email verifications.
	MetricVerifyEmailConfirmFailure
	// MetricConsumeConflict counts single-use consumes that lost the race or
	// found the record already gone.
	MetricConsumeConflict
	// MetricNotifyFailure counts notification sender failures.
	MetricNotifyFailure
	// MetricSweepDeleted counts records removed by the expiry sweeper.
	MetricSweepDeleted

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics instance. When cfg.Enabled is false all
// operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds delta to the counter.
func (m *Metrics) Add(id MetricID, delta uint64) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, delta)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
