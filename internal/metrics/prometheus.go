// Package metrics exposes the console state as Prometheus metrics.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Threat levels, in gauge order.
var threatLevels = []string{"low", "medium", "high", "critical"}

// Registry holds all console metrics.
type Registry struct {
	// Simulated traffic
	RequestsTotal   prometheus.Gauge
	RequestsBlocked prometheus.Gauge
	RequestsSafe    prometheus.Gauge
	ThreatLevel     *prometheus.GaugeVec

	// Configuration
	Enabled            prometheus.Gauge
	ProtectionEnabled  *prometheus.GaugeVec
	RateLimitRPM       prometheus.Gauge
	RateLimitBurst     prometheus.Gauge
	ListEntries        *prometheus.GaugeVec
	ListOperations     *prometheus.CounterVec
	ConfigCommits      *prometheus.CounterVec
	ConfigCommitErrors *prometheus.CounterVec

	// Console
	LogEntries    prometheus.Gauge
	Notifications *prometheus.CounterVec
	Uptime        prometheus.Gauge

	// Admin API
	APIRequests  *prometheus.CounterVec
	APILatency   *prometheus.HistogramVec
	APIThrottled prometheus.Counter
	WSClients    prometheus.Gauge

	// SSH console
	SSHSessions prometheus.Gauge
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = newRegistry()
	})
	return registry
}

func newRegistry() *Registry {
	r := &Registry{}

	r.RequestsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_requests_total",
		Help: "Total requests seen by the WAF (simulated)",
	})
	r.RequestsBlocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_requests_blocked",
		Help: "Requests blocked by the WAF (simulated)",
	})
	r.RequestsSafe = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_requests_safe",
		Help: "Requests passed by the WAF (simulated)",
	})
	r.ThreatLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iwaf_threat_level",
		Help: "Current threat level (1 for the active level)",
	}, []string{"level"})

	r.Enabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_enabled",
		Help: "Whether the WAF is enabled",
	})
	r.ProtectionEnabled = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iwaf_protection_enabled",
		Help: "Whether each protection feature is enabled",
	}, []string{"feature"})
	r.RateLimitRPM = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_rate_limit_requests_per_minute",
		Help: "Configured requests per minute",
	})
	r.RateLimitBurst = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_rate_limit_burst",
		Help: "Configured burst size",
	})
	r.ListEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iwaf_ip_list_entries",
		Help: "Number of entries in each IP list",
	}, []string{"list"})
	r.ListOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iwaf_ip_list_operations_total",
		Help: "IP list add/remove operations by result",
	}, []string{"list", "result"})
	r.ConfigCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iwaf_config_commits_total",
		Help: "Successful configuration commits by section",
	}, []string{"section"})
	r.ConfigCommitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iwaf_config_commit_errors_total",
		Help: "Rejected configuration commits by section",
	}, []string{"section"})

	r.LogEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_log_entries",
		Help: "Entries held by the log viewer",
	})
	r.Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iwaf_notifications_total",
		Help: "Notifications emitted by severity",
	}, []string{"severity"})
	r.Uptime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_uptime_seconds",
		Help: "Console uptime in seconds",
	})

	r.APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iwaf_api_requests_total",
		Help: "Admin API requests",
	}, []string{"method", "path", "status"})
	r.APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iwaf_api_request_duration_seconds",
		Help:    "Admin API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	r.APIThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iwaf_api_throttled_total",
		Help: "Admin API requests rejected by the per-client throttle",
	})
	r.WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_websocket_clients",
		Help: "Connected websocket clients",
	})

	r.SSHSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iwaf_ssh_sessions",
		Help: "Open SSH console sessions",
	})

	return r
}

// UpdateStats mirrors the simulated counters.
func (r *Registry) UpdateStats(total, blocked, safe int, threat string) {
	r.RequestsTotal.Set(float64(total))
	r.RequestsBlocked.Set(float64(blocked))
	r.RequestsSafe.Set(float64(safe))
	for _, level := range threatLevels {
		r.ThreatLevel.WithLabelValues(level).Set(boolFloat(level == threat))
	}
}

// UpdateConfig mirrors the committed configuration.
func (r *Registry) UpdateConfig(enabled bool, protections map[string]bool, rpm, burst int) {
	r.Enabled.Set(boolFloat(enabled))
	for feature, on := range protections {
		r.ProtectionEnabled.WithLabelValues(feature).Set(boolFloat(on))
	}
	r.RateLimitRPM.Set(float64(rpm))
	r.RateLimitBurst.Set(float64(burst))
}

// RecordListOp records an IP list operation and the resulting list size.
func (r *Registry) RecordListOp(list, result string, size int) {
	r.ListOperations.WithLabelValues(list, result).Inc()
	r.ListEntries.WithLabelValues(list).Set(float64(size))
}

// RecordCommit records a configuration commit attempt.
func (r *Registry) RecordCommit(section string, err error) {
	if err != nil {
		r.ConfigCommitErrors.WithLabelValues(section).Inc()
		return
	}
	r.ConfigCommits.WithLabelValues(section).Inc()
}

// RecordAPIRequest records an API request.
func (r *Registry) RecordAPIRequest(method, path string, status int, duration float64) {
	r.APIRequests.WithLabelValues(method, path, statusString(status)).Inc()
	r.APILatency.WithLabelValues(method, path).Observe(duration)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// statusString converts an HTTP status code to string.
func statusString(status int) string {
	return fmt.Sprintf("%d", status)
}
