package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/audiarr/audiarr/internal/jobs"
)

func TestHandleGetJobsStatus(t *testing.T) {
	server, _ := setupTestServer(t)
	router := server.Router()

	rr := doJSON(t, router, "GET", "/api/admin/jobs/status", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %v want %v", rr.Code, http.StatusOK)
	}
	var statuses []jobs.JobStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(statuses) != 4 {
		t.Errorf("expected 4 registered jobs, got %d", len(statuses))
	}
}

func TestHandleRunJob(t *testing.T) {
	server, _ := setupTestServer(t)
	router := server.Router()

	rr := doJSON(t, router, "POST", "/api/admin/jobs/run", map[string]string{
		"job_name": jobs.JobRetrySweep,
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("got %v want %v: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}

	// The sweep has nothing to do and finishes quickly.
	deadline := time.After(2 * time.Second)
	for {
		rr := doJSON(t, router, "GET", "/api/admin/jobs/status", nil)
		var statuses []jobs.JobStatus
		json.Unmarshal(rr.Body.Bytes(), &statuses)
		done := false
		for _, s := range statuses {
			if s.Name == jobs.JobRetrySweep && s.Status == "success" {
				done = true
			}
		}
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("job never reported success")
		case <-time.After(10 * time.Millisecond):
		}
	}

	rr = doJSON(t, router, "POST", "/api/admin/jobs/run", map[string]string{
		"job_name": "no-such-job",
	})
	if rr.Code != http.StatusConflict {
		t.Errorf("unknown job: got %v want %v", rr.Code, http.StatusConflict)
	}
}
