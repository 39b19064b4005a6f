package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/ranking"
)

func goodCandidate() models.Candidate {
	return models.Candidate{
		IndexerID:   1,
		IndexerName: "AudioBookBay",
		Title:       "The Housemaid by Freida McFadden M4B Unabridged",
		DownloadURL: "magnet:?xt=urn:btih:aaaabbbbccccddddeeee",
		SizeBytes:   400 << 20,
		Seeders:     40,
		Leechers:    2,
		PublishDate: time.Now().Add(-48 * time.Hour),
	}
}

func TestHandleTriggerSearch(t *testing.T) {
	server, env := setupTestServer(t)
	router := server.Router()
	req := createTestRequest(t, env, models.StatusAwaitingSearch)

	rr := doJSON(t, router, "POST", "/api/requests/"+itoa(req.ID)+"/search", nil)
	if rr.Code != http.StatusAccepted {
		t.Errorf("got %v want %v", rr.Code, http.StatusAccepted)
	}

	rr = doJSON(t, router, "POST", "/api/requests/9999/search", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing request: got %v want %v", rr.Code, http.StatusNotFound)
	}
}

func TestHandleListCandidates(t *testing.T) {
	server, env := setupTestServer(t)
	router := server.Router()
	req := createTestRequest(t, env, models.StatusAwaitingSearch)
	env.Searcher.Results = []models.Candidate{goodCandidate()}

	rr := doJSON(t, router, "GET", "/api/requests/"+itoa(req.ID)+"/candidates", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %v want %v: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var candidates []ranking.RankedCandidate
	if err := json.Unmarshal(rr.Body.Bytes(), &candidates); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Total <= 0 {
		t.Errorf("expected a scored candidate, got total %v", candidates[0].Total)
	}
}

func TestHandleGrabCandidate(t *testing.T) {
	server, env := setupTestServer(t)
	router := server.Router()
	req := createTestRequest(t, env, models.StatusAwaitingSearch)

	payload := ranking.RankedCandidate{Candidate: goodCandidate()}
	rr := doJSON(t, router, "POST", "/api/requests/"+itoa(req.ID)+"/grab", payload)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %v want %v: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	updated, _ := env.Store.GetRequest(req.ID)
	if updated.Status != models.StatusDownloading {
		t.Errorf("status = %s, want %s", updated.Status, models.StatusDownloading)
	}
	if len(env.Adapter.AddedURLs) != 1 {
		t.Fatalf("expected 1 URL sent to the client, got %d", len(env.Adapter.AddedURLs))
	}

	t.Run("MissingURL", func(t *testing.T) {
		other := createTestRequest(t, env, models.StatusAwaitingSearch)
		rr := doJSON(t, router, "POST", "/api/requests/"+itoa(other.ID)+"/grab", ranking.RankedCandidate{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("got %v want %v", rr.Code, http.StatusBadRequest)
		}
	})
}
