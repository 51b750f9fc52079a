// Package main runs a demo WebSocket client that follows the progress of a
// background solve.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"courierplan/internal/geo"
	"courierplan/internal/instance"
	"courierplan/internal/model"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func demoOrders(n int) []instance.Order {
	depot := geo.Point{X: 52.52, Y: 13.405}
	orders := make([]instance.Order, 0, n)
	for i := 1; i <= n; i++ {
		orders = append(orders, instance.Order{
			ID:       fmt.Sprintf("demo-%d", i),
			Pickup:   depot,
			Delivery: geo.Point{X: depot.X + 0.002*float64(i%5), Y: depot.Y + 0.002*float64(i/5)},
			Items:    1,
			Window:   instance.TimeWindow{Start: 0, End: 8 * 3600},
		})
	}
	return orders
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Start a background solve with progress tracking on
	body, _ := json.Marshal(model.SolveRequest{
		Orders:    demoOrders(20),
		ModelType: "scheduled",
		Params:    json.RawMessage(`{"max_calc_time":3,"track_solver_progress":true}`),
		Async:     true,
	})
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/solve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "planner")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("solve: unexpected status %s", resp.Status)
	}
	var run model.Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatal(err)
	}
	log.Printf("Run ID: %s", run.ID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/progress/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "viewer")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	pl, _ := json.Marshal(map[string]string{"runId": run.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			switch m.Type {
			case "ping":
				_ = c.WriteJSON(wsMessage{Type: "pong"})
			case "complete":
				log.Printf("WS <- complete")
				return
			default:
				log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
			}
		}
	}()

	select {
	case <-time.After(30 * time.Second):
		log.Printf("gave up waiting for run %s", run.ID)
	case <-done:
	}
}
