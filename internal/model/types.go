package model

import (
	"encoding/json"
	"time"

	"courierplan/internal/instance"
)

// Run states.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// SolveRequest is the JSON body of POST /v1/solve. Params is a parameter
// document layered over the stock parameters of ModelType.
type SolveRequest struct {
	Orders      []instance.Order `json:"orders"`
	NumCouriers int              `json:"nCouriers,omitempty"`
	HasWeights  bool             `json:"hasWeights,omitempty"`
	// HasPickupWindows marks the orders' pickup windows as meaningful.
	HasPickupWindows bool            `json:"hasPickupWindows,omitempty"`
	ModelType        string          `json:"modelType,omitempty"`
	Params           json.RawMessage `json:"params,omitempty"`
	// Metric is "haversine" (lat/lon, the default) or "euclidean".
	Metric string `json:"metric,omitempty"`
	// Async returns 202 with the run id and solves in the background.
	Async bool `json:"async,omitempty"`
}

// Run is one persisted planning run.
type Run struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenantId"`
	ModelType    string          `json:"modelType"`
	State        string          `json:"state"`
	SolverStatus string          `json:"solverStatus,omitempty"`
	StatusCode   int             `json:"statusCode"`
	NumOrders    int             `json:"numOrders"`
	Params       json.RawMessage `json:"params,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	DurationMs   int64           `json:"durationMs"`
	CreatedAt    time.Time       `json:"createdAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
}

// RunCompletion is what a finished solve writes back to its run.
type RunCompletion struct {
	State        string
	SolverStatus string
	StatusCode   int
	Result       json.RawMessage
	Error        string
	DurationMs   int64
}

type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}

// Wants reports whether the subscription covers eventType.
func (s Subscription) Wants(eventType string) bool {
	for _, e := range s.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}
