package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"courierplan/internal/model"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu         sync.Mutex
	runs       map[string]model.Run // id -> run
	runsByTen  map[string][]string  // tenant -> run ids in creation order
	subs       map[string][]model.Subscription
	deliveries map[string]*WebhookDelivery
	delByTen   map[string][]string
	order      []string // delivery ids in enqueue order
	dedup      map[string]string
	dlq        []WebhookDelivery
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		runs:       map[string]model.Run{},
		runsByTen:  map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*WebhookDelivery{},
		delByTen:   map[string][]string{},
		dedup:      map[string]string{},
	}
}

func (m *Memory) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = newID()
	}
	if run.State == "" {
		run.State = model.RunRunning
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	m.runs[run.ID] = run
	m.runsByTen[run.TenantID] = append(m.runsByTen[run.TenantID], run.ID)
	return run, nil
}

func (m *Memory) CompleteRun(ctx context.Context, tenantID, id string, c model.RunCompletion) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.TenantID != tenantID {
		return model.Run{}, ErrNotFound
	}
	now := time.Now().UTC()
	r.State = c.State
	r.SolverStatus = c.SolverStatus
	r.StatusCode = c.StatusCode
	r.Result = c.Result
	r.Error = c.Error
	r.DurationMs = c.DurationMs
	r.CompletedAt = &now
	m.runs[id] = r
	return r, nil
}

func (m *Memory) GetRun(ctx context.Context, tenantID, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok || r.TenantID != tenantID {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	out := []model.Run{}
	for _, id := range m.runsByTen[tenantID] {
		if cursor != "" && id <= cursor {
			continue
		}
		r := m.runs[id]
		r.Result = nil
		out = append(out, r)
		if len(out) == limit {
			return out, id, nil
		}
	}
	return out, "", nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: newID(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, s := range m.subs[tenantID] {
		if s.Wants(eventType) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	out := []model.Subscription{}
	for _, s := range m.subs[tenantID] {
		if cursor != "" && s.ID <= cursor {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			return out, s.ID, nil
		}
	}
	return out, "", nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	i := slices.IndexFunc(subs, func(s model.Subscription) bool { return s.ID == id })
	if i < 0 {
		return ErrNotFound
	}
	m.subs[tenantID] = slices.Delete(subs, i, i+1)
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tenantID + "|" + eventType + "|" + url + "|" + computeDedupKey(payload)
	if id, ok := m.dedup[key]; ok {
		return id, nil
	}
	id := newID()
	m.deliveries[id] = &WebhookDelivery{
		ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType,
		URL: url, Secret: secret, Payload: payload, Status: DeliveryPending, NextAttemptAt: time.Now(),
	}
	m.dedup[key] = id
	m.delByTen[tenantID] = append(m.delByTen[tenantID], id)
	m.order = append(m.order, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.order {
		d := m.deliveries[id]
		if (d.Status == DeliveryPending || d.Status == DeliveryRetry) && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		now := time.Now()
		d.Status = DeliveryDelivered
		d.DeliveredAt = &now
		return nil
	}
	d.Status = DeliveryRetry
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = DeliveryFailed
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	m.dlq = append(m.dlq, *d)
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]WebhookDelivery, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	out := []WebhookDelivery{}
	for _, id := range m.delByTen[tenantID] {
		d := m.deliveries[id]
		if (cursor != "" && id <= cursor) || (status != "" && d.Status != status) {
			continue
		}
		out = append(out, *d)
		if len(out) == limit {
			return out, id, nil
		}
	}
	return out, "", nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
