package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendDeliversPayload(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
	}))
	defer srv.Close()

	d := New(srv.URL)
	d.Send(context.Background(), EventRequestAvailable, 42, "The Housemaid", "ready")

	if got.Event != EventRequestAvailable || got.RequestID != 42 || got.Title != "The Housemaid" {
		t.Errorf("payload = %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Errorf("timestamp not set")
	}
}

func TestSendSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(srv.URL)
	d.Send(context.Background(), EventRequestFailed, 1, "t", "m")
}

func TestSendDisabled(t *testing.T) {
	d := New("")
	d.Send(context.Background(), EventRequestFailed, 1, "t", "m")

	var nilDispatcher *Dispatcher
	nilDispatcher.Send(context.Background(), EventRequestFailed, 1, "t", "m")
}
