package api

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"courierplan/internal/store"
	"courierplan/internal/webhooks"
)

type Server struct {
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker
	// Limiter throttles the whole API; nil disables rate limiting.
	Limiter *rate.Limiter
	// MaxCalcTime caps the solver budget of API runs in seconds; zero keeps
	// whatever the request asks for.
	MaxCalcTime   int64
	DefaultTenant string

	jobs sync.WaitGroup
}

// NewServer creates a Server from the environment. DATABASE_URL selects
// Postgres, SQLITE_PATH an embedded SQLite file, and the in-memory store is
// used when neither is set.
func NewServer() (*Server, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	var broker EventBroker = NewBroker()
	if url := os.Getenv("REDIS_URL"); url != "" {
		rb, err := NewRedisBroker(url)
		if err != nil {
			log.Printf("[api] redis broker unavailable, using in-process broker: %v", err)
		} else {
			broker = rb
		}
	}
	return &Server{
		Store:         st,
		Pub:           webhooks.NewPublisher(st),
		Broker:        broker,
		Limiter:       limiterFromEnv(),
		MaxCalcTime:   envInt("SOLVE_TIME_LIMIT_S", 0),
		DefaultTenant: os.Getenv("DEFAULT_TENANT"),
	}, nil
}

func openStore() (store.Store, error) {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.Migrate(); err != nil {
				sp.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return sp, nil
	}
	if path := strings.TrimSpace(os.Getenv("SQLITE_PATH")); path != "" {
		return store.NewSQLite(path)
	}
	return store.NewMemory(), nil
}

// limiterFromEnv reads RATE_RPS and RATE_BURST. A non-positive rate turns
// limiting off.
func limiterFromEnv() *rate.Limiter {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_RPS"), 64)
	if err != nil || rps <= 0 {
		return nil
	}
	burst := int(envInt("RATE_BURST", int64(max(1, int(rps)))))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func envInt(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}

// Wait blocks until every background solve has written its run.
func (s *Server) Wait() { s.jobs.Wait() }
