package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/model"
	"courierplan/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []failRec
}

type markRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}

type failRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}

func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, failRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventRunCompleted, srv.URL, "secret", []byte(`{"id":"evt1"}`))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	w.processOnce()

	assert.Equal(t, EventRunCompleted, gotType)
	assert.NoError(t, Verify("secret", gotSig, gotBody, time.Now(), time.Minute))
	require.Len(t, rs.marks, 1)
	assert.True(t, rs.marks[0].Success)
}

func TestWorkerProcessOnce_RetryThenFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 2}
	_, err := rs.Memory.EnqueueWebhook(context.Background(), "t1", "", EventRunCompleted, srv.URL, "", []byte(`{}`))
	require.NoError(t, err)

	w.processOnce()
	require.Len(t, rs.marks, 1)
	assert.False(t, rs.marks[0].Success)
	assert.Equal(t, 500, rs.marks[0].Code)
	assert.Empty(t, rs.fails)

	// the retry is scheduled in the future; deliver it directly
	list, _, err := rs.ListWebhookDeliveries(context.Background(), "t1", store.DeliveryRetry, "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	w.deliver(context.Background(), list[0])
	require.Len(t, rs.fails, 1)
	assert.Contains(t, rs.fails[0].LastErr, "500")
}

func TestPublisherEmitEnqueuesPerSubscription(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	_, err := s.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://a", Events: []string{EventRunCompleted}, Secret: "k"})
	require.NoError(t, err)
	_, err = s.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://b", Events: []string{EventRunFailed}})
	require.NoError(t, err)

	NewPublisher(s).Emit(ctx, "t1", EventRunCompleted, map[string]any{"runId": "r1"})

	due, err := s.FetchDueWebhookDeliveries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "http://a", due[0].URL)
	var body map[string]any
	require.NoError(t, json.Unmarshal(due[0].Payload, &body))
	assert.Equal(t, EventRunCompleted, body["type"])
	assert.Equal(t, "r1", body["data"].(map[string]any)["runId"])
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(-1))
	assert.Equal(t, 4*time.Second, nextBackoff(2))
	assert.Equal(t, 1024*time.Second, nextBackoff(50))
}
