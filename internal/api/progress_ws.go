package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"courierplan/internal/model"
	"courierplan/internal/store"
	"courierplan/internal/webhooks"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsMessage frames the progress socket. Clients send connection_init, then
// one subscribe per run; the server answers with next messages carrying run
// events and a complete once the run has finished.
type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	RunID string `json:"runId"`
}

// ProgressWSHandler handles /v1/progress/ws.
func (s *Server) ProgressWSHandler(w http.ResponseWriter, r *http.Request) {
	pr := s.getPrincipal(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	type sub struct {
		runID string
		ch    chan SSEEvent
	}
	var (
		mu   sync.Mutex // guards subs and serializes writes
		subs = map[string]sub{}
		done = make(chan struct{})
	)
	defer close(done)

	write := func(v any) error {
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}
	fail := func(id, msg string) {
		b, _ := json.Marshal(map[string]string{"message": msg})
		_ = write(wsMessage{Type: "error", ID: id, Payload: b})
		_ = write(wsMessage{Type: "complete", ID: id})
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
			go func() {
				ticker := time.NewTicker(20 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}
			}()
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			var pl subscribePayload
			if err := json.Unmarshal(msg.Payload, &pl); err != nil || pl.RunID == "" {
				fail(msg.ID, "runId required")
				continue
			}
			run, err := s.Store.GetRun(r.Context(), pr.Tenant, pl.RunID)
			if errors.Is(err, store.ErrNotFound) {
				fail(msg.ID, "run not found")
				continue
			}
			if err != nil {
				fail(msg.ID, err.Error())
				continue
			}
			mu.Lock()
			_, dup := subs[msg.ID]
			mu.Unlock()
			if dup {
				fail(msg.ID, "subscription id already in use")
				continue
			}
			ch := s.Broker.Subscribe(run.ID)
			// finished before the subscription: replay the outcome only
			if cur, err := s.Store.GetRun(r.Context(), pr.Tenant, run.ID); err == nil && cur.State != model.RunRunning {
				s.Broker.Unsubscribe(run.ID, ch)
				payload, _ := json.Marshal(SSEEvent{Type: finishedEvent(cur), Data: runEventData(cur)})
				_ = write(wsMessage{Type: "next", ID: msg.ID, Payload: payload})
				_ = write(wsMessage{Type: "complete", ID: msg.ID})
				continue
			}
			mu.Lock()
			subs[msg.ID] = sub{runID: run.ID, ch: ch}
			mu.Unlock()
			go func(id string, c chan SSEEvent) {
				for evt := range c {
					payload, _ := json.Marshal(evt)
					_ = write(wsMessage{Type: "next", ID: id, Payload: payload})
					if evt.Type == webhooks.EventRunCompleted || evt.Type == webhooks.EventRunFailed {
						break
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "complete":
			mu.Lock()
			s0, ok := subs[msg.ID]
			delete(subs, msg.ID)
			mu.Unlock()
			if ok {
				s.Broker.Unsubscribe(s0.runID, s0.ch)
			}
		}
	}
	mu.Lock()
	defer mu.Unlock()
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.runID, s0.ch)
		delete(subs, id)
	}
}
