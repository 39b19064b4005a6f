package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/pipeline"
)

func (s *Server) requestID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	return id, err == nil && id > 0
}

// requestUser resolves the acting user. Requests carry their owner in the
// payload or the X-User-ID header; absent both, the bootstrap admin acts.
func (s *Server) requestUser(r *http.Request, payloadUserID int64) (*models.User, error) {
	id := payloadUserID
	if id == 0 {
		if h := r.Header.Get("X-User-ID"); h != "" {
			id, _ = strconv.ParseInt(h, 10, 64)
		}
	}
	if id == 0 {
		id = 1
	}
	return s.store.GetUser(id)
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ASIN   string `json:"asin"`
		Title  string `json:"title"`
		Author string `json:"author"`
		Type   string `json:"type"`
		UserID int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	reqType := models.RequestType(payload.Type)
	if reqType == "" {
		reqType = models.TypeAudiobook
	}
	if reqType != models.TypeAudiobook && reqType != models.TypeEbook {
		RespondWithError(w, http.StatusBadRequest, "Unknown request type")
		return
	}

	user, err := s.requestUser(r, payload.UserID)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Unknown user")
		return
	}

	req, created, err := s.app.Pipeline().CreateRequest(r.Context(), user, pipeline.CreateInput{
		ASIN:   payload.ASIN,
		Title:  payload.Title,
		Author: payload.Author,
		Type:   reqType,
	})
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
		// Kick off the first search right away for requests that
		// skipped the approval gate. The search outlives the HTTP
		// response, so it gets its own context.
		if req.Status == models.StatusPending {
			go s.app.Pipeline().Search(context.Background(), req.ID)
		}
	}
	RespondWithJSON(w, code, req)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	var (
		requests []*models.Request
		err      error
	)
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		var statuses []models.RequestStatus
		for _, raw := range strings.Split(statusParam, ",") {
			statuses = append(statuses, models.RequestStatus(strings.TrimSpace(raw)))
		}
		requests, err = s.store.ListRequestsByStatus(statuses...)
	} else {
		requests, err = s.store.ListRequests()
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve requests")
		return
	}
	RespondWithJSON(w, http.StatusOK, requests)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	req, err := s.store.GetRequest(id)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Request not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, req)
}

func (s *Server) handleListRequestDownloads(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	downloads, err := s.store.ListDownloadsForRequest(id)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve download history")
		return
	}
	RespondWithJSON(w, http.StatusOK, downloads)
}

func (s *Server) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	if err := s.app.Pipeline().Approve(r.Context(), id); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Request approved"})
}

func (s *Server) handleRetryRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	if err := s.app.Pipeline().Retry(r.Context(), id); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Request retried"})
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	if err := s.app.Pipeline().Cancel(id); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Request cancelled"})
}

// handleDeleteRequest soft-deletes a request and applies the
// seeding-aware download cleanup.
func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	user, err := s.requestUser(r, 0)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Unknown user")
		return
	}
	if err := s.app.Pipeline().DeleteRequest(r.Context(), id, user.ID); err != nil {
		RespondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Request deleted"})
}

// handleHardDeleteRequest erases the request row and its download
// history. Lifetime stats are kept; they live in the settings table.
func (s *Server) handleHardDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requestID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid request ID")
		return
	}
	user, err := s.requestUser(r, 0)
	if err != nil || !user.IsAdmin() {
		RespondWithError(w, http.StatusForbidden, "Admin role required")
		return
	}
	if _, err := s.store.GetRequest(id); err != nil {
		RespondWithError(w, http.StatusNotFound, "Request not found")
		return
	}
	if err := s.store.HardDeleteRequest(id); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete request")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Request erased"})
}
