package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/audiarr/audiarr/internal/ranking"
)

// handleTriggerSearch starts an automatic search for the request. The
// search runs in the background; its outcome lands on the request row
// and the progress socket.
func (s *Server) handleTriggerSearch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	if _, err := s.store.GetRequest(id); err != nil {
		RespondWithError(w, http.StatusNotFound, "Request not found")
		return
	}
	go s.app.Pipeline().Search(context.Background(), id)
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Search started"})
}

// handleListCandidates runs an interactive search and returns the full
// ranked candidate list, rejects included, for human review.
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	candidates, err := s.app.Pipeline().InteractiveSearch(r.Context(), id)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, candidates)
}

// handleGrabCandidate sends a specific candidate, usually one picked from
// the interactive list, to the matching download client.
func (s *Server) handleGrabCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	var candidate ranking.RankedCandidate
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if candidate.DownloadURL == "" {
		RespondWithError(w, http.StatusBadRequest, "Candidate download URL is required")
		return
	}
	if _, err := s.store.GetRequest(id); err != nil {
		RespondWithError(w, http.StatusNotFound, "Request not found")
		return
	}
	if err := s.app.Pipeline().GrabInteractive(r.Context(), id, candidate); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Candidate grabbed"})
}
