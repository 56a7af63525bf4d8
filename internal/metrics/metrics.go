package metrics

import (
	"sync"
	"time"
)

// MetricsCollector provides a centralized way to collect and retrieve metrics
type MetricsCollector struct {
	mutex               sync.RWMutex
	counters            map[string]int64
	gauges              map[string]float64
	requestCounts       map[string]int64
	requestLatencies    map[string][]time.Duration
	lifecycleCounts     map[string]int64
	lifecycleLatencies  map[string][]time.Duration
	errorCounts         map[string]int64
	startTime           time.Time
	maxHistogramSamples int
}

// Counter metrics
const (
	CounterHTTPRequests        = "http_requests_total"
	CounterHTTPRequestsSuccess = "http_requests_success_total"
	CounterHTTPRequestsError   = "http_requests_error_total"
	CounterRegistrations       = "registrations_total"
	CounterApprovals           = "approvals_total"
	CounterRejections          = "rejections_total"
	CounterConflicts           = "registration_conflicts_total"
	CounterNotifications       = "notifications_appended_total"
	CounterErrorsTotal         = "errors_total"
)

// Gauge metrics
const (
	GaugePendingParticipations = "pending_participations"
)

// Lifecycle operation types
const (
	LifecycleRegister    = "register"
	LifecycleApprove     = "approve"
	LifecycleReject      = "reject"
	LifecycleEventCreate = "event_create"
)

// Error types
const (
	ErrorTypeHTTP       = "http"
	ErrorTypeValidation = "validation"
	ErrorTypeDatabase   = "database"
	ErrorTypeMessageBus = "message_bus"
	ErrorTypeInternal   = "internal"
)

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:            make(map[string]int64),
		gauges:              make(map[string]float64),
		requestCounts:       make(map[string]int64),
		requestLatencies:    make(map[string][]time.Duration),
		lifecycleCounts:     make(map[string]int64),
		lifecycleLatencies:  make(map[string][]time.Duration),
		errorCounts:         make(map[string]int64),
		startTime:           time.Now(),
		maxHistogramSamples: 1000,
	}
}

// IncrementCounter increments a counter by the given value
func (m *MetricsCollector) IncrementCounter(name string, value int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.counters[name] += value
}

// SetGauge sets a gauge to the given value
func (m *MetricsCollector) SetGauge(name string, value float64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.gauges[name] = value
}

// RecordHTTPRequest records metrics for an HTTP request
func (m *MetricsCollector) RecordHTTPRequest(path string, statusCode int, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.counters[CounterHTTPRequests]++
	m.requestCounts[path]++
	m.requestLatencies[path] = m.appendSample(m.requestLatencies[path], latency)

	if statusCode >= 200 && statusCode < 400 {
		m.counters[CounterHTTPRequestsSuccess]++
	} else {
		m.counters[CounterHTTPRequestsError]++
		m.errorCounts[ErrorTypeHTTP]++
	}
}

// RecordLifecycle records metrics for a participation lifecycle operation
func (m *MetricsCollector) RecordLifecycle(operation string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.lifecycleCounts[operation]++
	m.lifecycleLatencies[operation] = m.appendSample(m.lifecycleLatencies[operation], latency)

	switch operation {
	case LifecycleRegister:
		m.counters[CounterRegistrations]++
	case LifecycleApprove:
		m.counters[CounterApprovals]++
	case LifecycleReject:
		m.counters[CounterRejections]++
	}
}

// RecordConflict records a rejected duplicate registration
func (m *MetricsCollector) RecordConflict() {
	m.IncrementCounter(CounterConflicts, 1)
}

// RecordNotification records an appended notification
func (m *MetricsCollector) RecordNotification() {
	m.IncrementCounter(CounterNotifications, 1)
}

// RecordError records an error of the given type
func (m *MetricsCollector) RecordError(errorType string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.errorCounts[errorType]++
	m.counters[CounterErrorsTotal]++
}

// SetPendingParticipations sets the number of pending participations
func (m *MetricsCollector) SetPendingParticipations(count int64) {
	m.SetGauge(GaugePendingParticipations, float64(count))
}

// appendSample appends a latency sample, dropping the oldest once full.
// Caller must hold the mutex.
func (m *MetricsCollector) appendSample(samples []time.Duration, value time.Duration) []time.Duration {
	if samples == nil {
		samples = make([]time.Duration, 0, m.maxHistogramSamples)
	}
	if len(samples) >= m.maxHistogramSamples {
		samples = samples[1:]
	}
	return append(samples, value)
}

// averageLatencies computes average latency in milliseconds per key.
// Caller must hold the mutex.
func averageLatencies(latencies map[string][]time.Duration) map[string]float64 {
	averages := make(map[string]float64)
	for key, samples := range latencies {
		if len(samples) == 0 {
			continue
		}
		var sum time.Duration
		for _, l := range samples {
			sum += l
		}
		averages[key] = float64(sum.Milliseconds()) / float64(len(samples))
	}
	return averages
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copyGauges(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// GetMetrics returns a snapshot of all collected metrics. The maps are
// copied under the lock; serializing the result never races a writer.
func (m *MetricsCollector) GetMetrics() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.startTime).Seconds(),
		"counters":               copyCounts(m.counters),
		"gauges":                 copyGauges(m.gauges),
		"request_counts":         copyCounts(m.requestCounts),
		"request_latencies_ms":   averageLatencies(m.requestLatencies),
		"lifecycle_counts":       copyCounts(m.lifecycleCounts),
		"lifecycle_latencies_ms": averageLatencies(m.lifecycleLatencies),
		"error_counts":           copyCounts(m.errorCounts),
	}
}

// GetHealthStatus returns a simple health status based on metrics
func (m *MetricsCollector) GetHealthStatus() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	healthy := true
	errorRate := 0.0
	totalRequests := m.counters[CounterHTTPRequests]
	if totalRequests > 0 {
		errorRate = float64(m.counters[CounterHTTPRequestsError]) / float64(totalRequests)
	}

	// 5% error rate is considered unhealthy
	const errorRateThreshold = 0.05
	if errorRate > errorRateThreshold {
		healthy = false
	}

	return map[string]interface{}{
		"status": map[string]interface{}{
			"healthy":        healthy,
			"uptime_seconds": time.Since(m.startTime).Seconds(),
		},
		"metrics": map[string]interface{}{
			"total_requests": totalRequests,
			"error_rate":     errorRate,
			"registrations":  m.counters[CounterRegistrations],
			"approvals":      m.counters[CounterApprovals],
			"rejections":     m.counters[CounterRejections],
			"conflicts":      m.counters[CounterConflicts],
		},
	}
}

// Global metrics collector instance
var globalCollector *MetricsCollector
var once sync.Once

// GetMetricsCollector returns the global metrics collector instance
func GetMetricsCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = NewMetricsCollector()
	})
	return globalCollector
}
