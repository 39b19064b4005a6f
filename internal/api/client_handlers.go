package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/models"
)

func (s *Server) clientID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "clientID"), 10, 64)
	return id, err == nil && id > 0
}

// redactSecrets strips credentials before a config leaves the API.
func redactSecrets(c *models.DownloadClientConfig) *models.DownloadClientConfig {
	out := *c
	out.Password = ""
	out.APIKey = ""
	return &out
}

func (s *Server) reloadClients(w http.ResponseWriter) bool {
	if err := s.app.Clients().Reload(s.store, s.app.Config().Download.Dir); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to reload download clients")
		return false
	}
	return true
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	configs, err := s.store.ListClientConfigs()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve download clients")
		return
	}
	out := make([]*models.DownloadClientConfig, 0, len(configs))
	for _, c := range configs {
		out = append(out, redactSecrets(c))
	}
	RespondWithJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var cfg models.DownloadClientConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if _, err := downloadclient.NewAdapter(&cfg, s.app.Config().Download.Dir); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.CreateClientConfig(&cfg)
	if err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	cfg.ID = id
	if !s.reloadClients(w) {
		return
	}
	RespondWithJSON(w, http.StatusCreated, redactSecrets(&cfg))
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clientID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}
	existing, err := s.store.GetClientConfig(id)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Download client not found")
		return
	}

	var cfg models.DownloadClientConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	cfg.ID = id
	// Secrets are redacted on the way out, so an empty secret on the way
	// in means "keep what is stored".
	if cfg.Password == "" {
		cfg.Password = existing.Password
	}
	if cfg.APIKey == "" {
		cfg.APIKey = existing.APIKey
	}
	if _, err := downloadclient.NewAdapter(&cfg, s.app.Config().Download.Dir); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpdateClientConfig(&cfg); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	if !s.reloadClients(w) {
		return
	}
	RespondWithJSON(w, http.StatusOK, redactSecrets(&cfg))
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clientID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}
	if _, err := s.store.GetClientConfig(id); err != nil {
		RespondWithError(w, http.StatusNotFound, "Download client not found")
		return
	}
	if err := s.store.DeleteClientConfig(id); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete download client")
		return
	}
	if !s.reloadClients(w) {
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Download client deleted"})
}

// handleTestClient checks connectivity to a saved client and reports the
// failure class so the UI can point at the actual problem.
func (s *Server) handleTestClient(w http.ResponseWriter, r *http.Request) {
	id, ok := s.clientID(r)
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}
	cfg, err := s.store.GetClientConfig(id)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Download client not found")
		return
	}
	adapter, err := downloadclient.NewAdapter(cfg, s.app.Config().Download.Dir)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := adapter.Test(r.Context()); err != nil {
		result := map[string]string{"ok": "false", "error": err.Error()}
		var clientErr *downloadclient.ClientError
		if errors.As(err, &clientErr) {
			result["class"] = string(clientErr.Class)
		}
		RespondWithJSON(w, http.StatusOK, result)
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}
