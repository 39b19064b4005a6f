// Defines the API server, sets up the routes using chi, and links them
// to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/audiarr/audiarr/internal/core"
	"github.com/audiarr/audiarr/internal/store"
	"github.com/audiarr/audiarr/internal/websocket"
)

// Server holds the dependencies for the API.
type Server struct {
	app   *core.App
	store *store.Store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		store: app.Store(),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleGetVersion)
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleGetStats)

		// Request lifecycle
		r.Post("/requests", s.handleCreateRequest)
		r.Get("/requests", s.handleListRequests)
		r.Route("/requests/{requestID}", func(r chi.Router) {
			r.Get("/", s.handleGetRequest)
			r.Delete("/", s.handleDeleteRequest)
			r.Get("/downloads", s.handleListRequestDownloads)
			r.Post("/approve", s.handleApproveRequest)
			r.Post("/retry", s.handleRetryRequest)
			r.Post("/cancel", s.handleCancelRequest)
			r.Post("/search", s.handleTriggerSearch)
			r.Get("/candidates", s.handleListCandidates)
			r.Post("/grab", s.handleGrabCandidate)
		})

		// Download client management
		r.Get("/clients", s.handleListClients)
		r.Post("/clients", s.handleCreateClient)
		r.Put("/clients/{clientID}", s.handleUpdateClient)
		r.Delete("/clients/{clientID}", s.handleDeleteClient)
		r.Post("/clients/{clientID}/test", s.handleTestClient)

		// Admin job triggers
		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs/status", s.handleGetJobsStatus)
			r.Post("/jobs/run", s.handleRunJob)
			r.Delete("/requests/{requestID}", s.handleHardDeleteRequest)
		})
	})

	// WebSocket route for request progress updates.
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWs(s.app.WsHub(), w, r)
	})

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DB().Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}
