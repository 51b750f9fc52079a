package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the planner
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Solves counts finished solves by model type and status string
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_solves_total", Help: "Solves by model type and solver status."},
		[]string{"model", "status"},
	)
	// SolveDuration records solver wall time in seconds
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "planner_solve_duration_seconds", Help: "Solver wall time in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60}},
		[]string{"model"},
	)
	// FilteredOrders counts orders dropped before solving, by reason
	FilteredOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_filtered_orders_total", Help: "Orders dropped by the feasibility filter, by reason."},
		[]string{"reason"},
	)
	// EarlyStops counts searches ended by the progress observer
	EarlyStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_early_stops_total", Help: "Searches finished early after stagnating."},
		[]string{"model"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by event type and status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by event type and status."},
		[]string{"event_type", "status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"event_type", "status"},
	)
)

// RegisterDefault registers collectors to the planner registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Solves)
		Registry.MustRegister(SolveDuration)
		Registry.MustRegister(FilteredOrders)
		Registry.MustRegister(EarlyStops)
		Registry.MustRegister(WebhookDeliveries)
		Registry.MustRegister(WebhookLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once

// ObserveFilter adds one filter run's drop counts.
func ObserveFilter(counts map[string]int) {
	for reason, n := range counts {
		if n > 0 {
			FilteredOrders.WithLabelValues(reason).Add(float64(n))
		}
	}
}
