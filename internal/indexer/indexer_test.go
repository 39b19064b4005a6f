package indexer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/audiarr/audiarr/internal/models"
)

func TestSearchNormalizesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("api key header = %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "the housemaid" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"indexerId": 3, "indexer": "AudioBay", "title": "The Housemaid [M4B]",
			 "downloadUrl": "https://x/dl/1.torrent", "size": 500000000,
			 "seeders": 12, "leechers": 2, "protocol": "torrent",
			 "publishDate": "2024-04-01T10:00:00Z", "indexerFlags": ["freeleech"]},
			{"indexerId": 4, "indexer": "NZBHub", "title": "The Housemaid",
			 "downloadUrl": "https://x/getnzb?t=get&id=9", "size": 400000000,
			 "protocol": "usenet"},
			{"indexerId": 5, "indexer": "MagnetOnly", "title": "The Housemaid MP3",
			 "magnetUrl": "magnet:?xt=urn:btih:abc", "size": 300000000, "seeders": 1},
			{"indexerId": 6, "indexer": "Broken", "title": "No URL at all"}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	candidates, err := c.Search(context.Background(), "the housemaid", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("got %d candidates, want 3 (the URL-less result is dropped)", len(candidates))
	}

	first := candidates[0]
	if first.IndexerName != "AudioBay" || first.Seeders != 12 || first.SizeBytes != 500000000 {
		t.Errorf("first candidate = %+v", first)
	}
	if len(first.Flags) != 1 || first.Flags[0] != "freeleech" {
		t.Errorf("flags = %v", first.Flags)
	}
	if first.PublishDate.IsZero() {
		t.Errorf("publish date not parsed")
	}
	if candidates[1].DetectProtocol() != models.ProtocolUsenet {
		t.Errorf("second candidate should route to usenet")
	}
	if candidates[2].DownloadURL != "magnet:?xt=urn:btih:abc" {
		t.Errorf("magnet fallback not applied: %q", candidates[2].DownloadURL)
	}
}

func TestSearchLimitsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "1" {
			t.Errorf("limit = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"indexerId": 1, "indexer": "A", "title": "One", "downloadUrl": "https://x/1"},
			{"indexerId": 2, "indexer": "B", "title": "Two", "downloadUrl": "https://x/2"}
		]`))
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	candidates, err := c.Search(context.Background(), "q", SearchOptions{MaxResults: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1", len(candidates))
	}
}

func TestSearchBadAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "wrong")
	if _, err := c.Search(context.Background(), "q", SearchOptions{}); err == nil {
		t.Fatalf("expected error for 401")
	}
	if err := c.Test(context.Background()); err == nil {
		t.Fatalf("Test should fail on 401")
	}
}
