package api

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	rid := "r1"
	ch := b.Subscribe(rid)

	evt := SSEEvent{Type: "test.event", Data: map[string]any{"x": 1}}
	b.Publish(rid, evt)
	b.Publish("other", SSEEvent{Type: "other.event"})

	select {
	case got := <-ch:
		assert.Equal(t, evt.Type, got.Type)
		assert.Equal(t, 1, got.Data["x"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(rid, ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
	// a second unsubscribe must not close twice
	b.Unsubscribe(rid, ch)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("r1")
	defer b.Unsubscribe("r1", ch)
	for i := range 20 {
		b.Publish("r1", SSEEvent{Type: "solver.progress", Data: map[string]any{"index": i}})
	}
	assert.Len(t, ch, cap(ch))
}

func TestRedisBroker(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	require.NoError(t, err)
	defer b.Close()

	ch := b.Subscribe("run-1")
	b.Publish("run-1", SSEEvent{Type: "run.completed", Data: map[string]any{"runId": "run-1"}})

	select {
	case got := <-ch:
		assert.Equal(t, "run.completed", got.Type)
		assert.Equal(t, "run-1", got.Data["runId"])
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe("run-1", ch)
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRedisBrokerBadURL(t *testing.T) {
	_, err := NewRedisBroker("not a url")
	assert.Error(t, err)
}
