package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courierplan/internal/model"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	lite, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": lite}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			run, err := s.CreateRun(ctx, model.Run{TenantID: "t1", ModelType: "scheduled", NumOrders: 3, Params: json.RawMessage(`{"speed":3}`)})
			require.NoError(t, err)
			require.NotEmpty(t, run.ID)
			assert.Equal(t, model.RunRunning, run.State)

			got, err := s.GetRun(ctx, "t1", run.ID)
			require.NoError(t, err)
			assert.Equal(t, "scheduled", got.ModelType)
			assert.JSONEq(t, `{"speed":3}`, string(got.Params))
			assert.Nil(t, got.CompletedAt)

			_, err = s.GetRun(ctx, "other", run.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			done, err := s.CompleteRun(ctx, "t1", run.ID, model.RunCompletion{
				State: model.RunCompleted, SolverStatus: "success", StatusCode: 1,
				Result: json.RawMessage(`{"routes":[]}`), DurationMs: 42,
			})
			require.NoError(t, err)
			assert.Equal(t, model.RunCompleted, done.State)
			assert.Equal(t, 1, done.StatusCode)
			assert.Equal(t, int64(42), done.DurationMs)
			assert.JSONEq(t, `{"routes":[]}`, string(done.Result))
			require.NotNil(t, done.CompletedAt)

			_, err = s.CompleteRun(ctx, "t1", "missing", model.RunCompletion{State: model.RunFailed})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestListRunsPages(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for range 3 {
				r, err := s.CreateRun(ctx, model.Run{TenantID: "t1", ModelType: "live", Result: json.RawMessage(`{}`)})
				require.NoError(t, err)
				ids = append(ids, r.ID)
			}
			_, err := s.CreateRun(ctx, model.Run{TenantID: "t2", ModelType: "live"})
			require.NoError(t, err)

			page, next, err := s.ListRuns(ctx, "t1", "", 2)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, ids[:2], []string{page[0].ID, page[1].ID})
			assert.Nil(t, page[0].Result)
			require.Equal(t, ids[1], next)

			page, next, err = s.ListRuns(ctx, "t1", next, 2)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, ids[2], page[0].ID)
			assert.Empty(t, next)
		})
	}
}

func TestSubscriptions(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://a", Events: []string{"run.completed"}, Secret: "x"})
			require.NoError(t, err)
			_, err = s.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://b", Events: []string{"run.failed"}})
			require.NoError(t, err)

			subs, err := s.GetSubscriptionsForEvent(ctx, "t1", "run.completed")
			require.NoError(t, err)
			require.Len(t, subs, 1)
			assert.Equal(t, "http://a", subs[0].URL)
			assert.Equal(t, "x", subs[0].Secret)

			all, _, err := s.ListSubscriptions(ctx, "t1", "", 10)
			require.NoError(t, err)
			assert.Len(t, all, 2)

			require.NoError(t, s.DeleteSubscription(ctx, "t1", a.ID))
			assert.ErrorIs(t, s.DeleteSubscription(ctx, "t1", a.ID), ErrNotFound)
			subs, err = s.GetSubscriptionsForEvent(ctx, "t1", "run.completed")
			require.NoError(t, err)
			assert.Empty(t, subs)
		})
	}
}

func TestWebhookDeliveryQueue(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			body := []byte(`{"id":"evt_1","type":"run.completed"}`)
			_, err := s.EnqueueWebhook(ctx, "t1", "sub", "run.completed", "http://a", "secret", body)
			require.NoError(t, err)
			_, err = s.EnqueueWebhook(ctx, "t1", "sub", "run.completed", "http://a", "secret", body)
			require.NoError(t, err)

			due, err := s.FetchDueWebhookDeliveries(ctx, 10)
			require.NoError(t, err)
			require.Len(t, due, 1, "duplicate event ids are enqueued once")
			d := due[0]
			assert.Equal(t, body, d.Payload)
			assert.Equal(t, "secret", d.Secret)

			later := time.Now().Add(time.Hour)
			require.NoError(t, s.MarkWebhookDelivery(ctx, d.ID, false, &later, "boom", 500, 12))
			due, err = s.FetchDueWebhookDeliveries(ctx, 10)
			require.NoError(t, err)
			assert.Empty(t, due)

			list, _, err := s.ListWebhookDeliveries(ctx, "t1", DeliveryRetry, "", 10)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 1, list[0].Attempts)
			assert.Equal(t, "boom", list[0].LastError)
			assert.Equal(t, 500, list[0].ResponseCode)

			require.NoError(t, s.FailWebhookDelivery(ctx, d.ID, "gave up", 500, 10))
			list, _, err = s.ListWebhookDeliveries(ctx, "t1", DeliveryFailed, "", 10)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 2, list[0].Attempts)
		})
	}
}

func TestSQLiteRebindIsNoop(t *testing.T) {
	s := &SQL{}
	assert.Equal(t, "a=? AND b=?", s.q("a=? AND b=?"))
	pg := &SQL{numbered: true}
	assert.Equal(t, "a=$1 AND b=$2", pg.q("a=? AND b=?"))
}

func TestComputeDedupKeyFromID(t *testing.T) {
	assert.Equal(t, "evt_123", computeDedupKey([]byte(`{"id":"evt_123","type":"x"}`)))
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	got := computeDedupKey([]byte(`{"notId":"x"}`))
	b, err := hex.DecodeString(got)
	require.NoError(t, err)
	assert.Len(t, b, 8)
}
