package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aksjeradar/aksjeradar/internal/models"
)

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("Clients = %d", hub.Clients())
	}

	hub.Broadcast(models.Message{Type: models.MessageMarketSummary, Content: "ok"})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != models.MessageMarketSummary || got.Content != "ok" {
		t.Errorf("got %+v", got)
	}
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()
	for i := 0; i < broadcastBuffer; i++ {
		if !hub.Broadcast(models.Message{Type: models.MessageQuote}) {
			t.Fatalf("message %d dropped early", i)
		}
	}
	if hub.Broadcast(models.Message{Type: models.MessageQuote}) {
		t.Error("Expected a full queue to drop")
	}
}
