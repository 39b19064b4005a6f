package downloadclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/audiarr/audiarr/internal/models"
)

func waitForState(t *testing.T, d *Direct, id, state string) *DownloadStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s, err := d.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if s != nil && s.State == state {
			return s
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("download %s never reached state %s", id, state)
	return nil
}

func TestDirectDownloadLifecycle(t *testing.T) {
	payload := []byte("not really an audiobook, but close enough")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDirect(dir)

	id, err := d.Add(context.Background(), srv.URL+"/the-housemaid.m4b", AddOptions{Category: "audiobooks"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	status := waitForState(t, d, id, StateCompleted)
	if status.Progress != 100 {
		t.Errorf("progress = %v, want 100", status.Progress)
	}
	want := filepath.Join(dir, "audiobooks", "the-housemaid.m4b")
	if status.DownloadPath != want {
		t.Errorf("path = %q, want %q", status.DownloadPath, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading downloaded file: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("downloaded content mismatch")
	}
}

func TestDirectAddIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	d := NewDirect(t.TempDir())
	url := srv.URL + "/book.mp3"
	id1, err := d.Add(context.Background(), url, AddOptions{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	id2, err := d.Add(context.Background(), url, AddOptions{})
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same source should map to the same id: %s vs %s", id1, id2)
	}
}

func TestDirectGetUnknownID(t *testing.T) {
	d := NewDirect(t.TempDir())
	s, err := d.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s != nil {
		t.Errorf("unknown id should yield nil status, got %+v", s)
	}
}

func TestDirectServerErrorMarksFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDirect(t.TempDir())
	id, err := d.Add(context.Background(), srv.URL+"/missing.m4b", AddOptions{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	waitForState(t, d, id, StateError)
}

func TestDirectDeleteRemovesFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDirect(dir)
	id, err := d.Add(context.Background(), srv.URL+"/b.m4b", AddOptions{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	status := waitForState(t, d, id, StateCompleted)

	if err := d.Delete(context.Background(), id, true); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(status.DownloadPath); !os.IsNotExist(err) {
		t.Errorf("file should be gone after delete")
	}
	// Deleting again is fine.
	if err := d.Delete(context.Background(), id, true); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestNewAdapterTypes(t *testing.T) {
	cases := []struct {
		clientType models.ClientType
		protocol   models.Protocol
	}{
		{models.ClientQBittorrent, models.ProtocolTorrent},
		{models.ClientTransmission, models.ProtocolTorrent},
		{models.ClientDeluge, models.ProtocolTorrent},
		{models.ClientSABnzbd, models.ProtocolUsenet},
		{models.ClientNZBGet, models.ProtocolUsenet},
	}
	for _, tc := range cases {
		cfg := &models.DownloadClientConfig{Name: "c", Type: tc.clientType, Host: "localhost", Port: 1}
		a, err := NewAdapter(cfg, "/downloads")
		if err != nil {
			t.Fatalf("%s: %v", tc.clientType, err)
		}
		if a.Protocol() != tc.protocol {
			t.Errorf("%s: protocol = %s, want %s", tc.clientType, a.Protocol(), tc.protocol)
		}
	}
}

func TestNewAdapterRejectsIncompleteMapping(t *testing.T) {
	cfg := &models.DownloadClientConfig{
		Name:               "bad",
		Type:               models.ClientQBittorrent,
		PathMappingEnabled: true,
		RemotePath:         "/data",
	}
	if _, err := NewAdapter(cfg, "/downloads"); err == nil {
		t.Fatalf("expected validation error for mapping missing the local path")
	}
}

func TestNewAdapterUnknownType(t *testing.T) {
	cfg := &models.DownloadClientConfig{Name: "x", Type: "rtorrent"}
	if _, err := NewAdapter(cfg, "/downloads"); err == nil {
		t.Fatalf("expected error for unsupported client type")
	}
}
