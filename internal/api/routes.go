package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"courierplan/internal/metrics"
)

// Routes returns the API mux wrapped in logging, metrics and rate limiting.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Planning
	mux.HandleFunc("/v1/solve", s.SolveHandler)
	mux.HandleFunc("/v1/quick", s.QuickHandler)
	mux.HandleFunc("/v1/verify", s.VerifyHandler)

	// Runs
	mux.HandleFunc("/v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /verify, /events/stream
	mux.HandleFunc("/v1/progress/ws", s.ProgressWSHandler)

	// Webhooks
	mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)
	mux.HandleFunc("/v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)

	// Health, metrics, docs
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/build", s.DebugJSON)
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	return logMiddleware(metricsMiddleware(s.rateLimit(mux)))
}
