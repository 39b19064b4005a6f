package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/audiarr/audiarr/internal/models"
)

func TestHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 1 {
		t.Fatalf("Expected 1 client after registration, got %d", len(hub.clients))
	}

	message := []byte("hello")
	hub.broadcast <- message

	select {
	case received := <-client.send:
		if string(received) != "hello" {
			t.Errorf("Client received wrong message: got %s, want %s", received, message)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Client did not receive broadcast message in time")
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 0 {
		t.Fatalf("Expected 0 clients after unregistration, got %d", len(hub.clients))
	}
}

func TestBroadcastProgress(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastProgress(models.ProgressUpdate{
		RequestID: 7,
		Status:    "downloading",
		Progress:  42.5,
	})

	select {
	case received := <-client.send:
		var update models.ProgressUpdate
		if err := json.Unmarshal(received, &update); err != nil {
			t.Fatalf("unmarshaling update: %v", err)
		}
		if update.RequestID != 7 || update.Progress != 42.5 {
			t.Errorf("update = %+v", update)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Client did not receive progress update in time")
	}
}

func TestSlowClientDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Zero-capacity send channel: the first broadcast cannot be delivered.
	client := &Client{hub: hub, send: make(chan []byte)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.broadcast <- []byte("one")
	time.Sleep(10 * time.Millisecond)
	if len(hub.clients) != 0 {
		t.Fatalf("slow client should have been dropped, still have %d", len(hub.clients))
	}
}
