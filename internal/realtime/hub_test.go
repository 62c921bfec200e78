package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/project-queyk/queyk-backend/internal/realtime"
)

// startHub serves hub over a test HTTP server and runs it until the test ends.
func startHub(t *testing.T) (string, *realtime.Hub, context.CancelFunc) {
	t.Helper()
	hub := realtime.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub, cancel
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForCount(t *testing.T, hub *realtime.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Count() = %d, want %d", hub.Count(), want)
}

func TestBroadcast_NoClients(t *testing.T) {
	_, hub, _ := startHub(t)
	n, err := hub.Broadcast("reading:new", map[string]float64{"siMaximum": 0.2})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if n != 0 {
		t.Errorf("delivered = %d, want 0", n)
	}
}

func TestBroadcast_DeliversEnvelope(t *testing.T) {
	wsURL, hub, _ := startHub(t)
	a := dial(t, wsURL)
	b := dial(t, wsURL)
	waitForCount(t, hub, 2)

	n, err := hub.Broadcast("alert", map[string]any{"magnitude": 5.1})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if n != 2 {
		t.Errorf("delivered = %d, want 2", n)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var msg realtime.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if msg.Event != "alert" || string(msg.Data) != `{"magnitude":5.1}` {
			t.Errorf("message = %s", raw)
		}
	}
}

func TestBroadcast_UnmarshalablePayload(t *testing.T) {
	_, hub, _ := startHub(t)
	if _, err := hub.Broadcast("alert", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	wsURL, hub, _ := startHub(t)
	conn := dial(t, wsURL)
	waitForCount(t, hub, 1)
	conn.Close()
	waitForCount(t, hub, 0)
}

func TestRun_ShutdownClosesClients(t *testing.T) {
	wsURL, hub, cancel := startHub(t)
	conn := dial(t, wsURL)
	waitForCount(t, hub, 1)

	cancel()
	waitForCount(t, hub, 0)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed after shutdown")
	}
}
