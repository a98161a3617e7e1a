package sessionless

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter in [Metrics].
type MetricID uint16

const (
	// MetricTokenAbsent counts requests where no extractor found a token.
	MetricTokenAbsent MetricID = iota
	// MetricTokenVerified counts tokens that passed verification.
	MetricTokenVerified
	// MetricVerificationFailure counts every verification failure, whatever the policy.
	MetricVerificationFailure
	// MetricVerificationSuppressed counts failures swallowed by the suppress policy.
	MetricVerificationSuppressed
	// MetricVerificationHandled counts failures passed to a custom handler.
	MetricVerificationHandled
	// MetricVerificationPropagated counts failures that halted the request.
	MetricVerificationPropagated
	// MetricSubjectMissing counts verified tokens without a subject.
	MetricSubjectMissing
	// MetricUserResolved counts users attached to a request.
	MetricUserResolved
	// MetricUserNotFound counts subjects that no longer resolve to a user.
	MetricUserNotFound
	// MetricDeserializeFailure counts DeserializeUser errors.
	MetricDeserializeFailure
	// MetricTokenSigned counts issued tokens.
	MetricTokenSigned
	// MetricSignFailure counts SerializeUser or codec failures during signing.
	MetricSignFailure
	// MetricCookieIssued counts token cookies written.
	MetricCookieIssued
	// MetricCookieRevoked counts token cookies cleared.
	MetricCookieRevoked
	// MetricVerifyLatency is the verification latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// MetricsConfig toggles metric collection.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics is a fixed set of lock-free counters shared by every request a
// middleware handles. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricVerifyLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

// bucket upper bounds in microseconds; verification is CPU-bound and fast.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 2500:
		return 5
	case us <= 5000:
		return 6
	default:
		return 7
	}
}
