// Package core wires the application together: configuration, database,
// download clients, the request pipeline, and background jobs. Both the
// server binary and tests build on it.
package core

import (
	"database/sql"
	"fmt"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/db"
	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/indexer"
	"github.com/audiarr/audiarr/internal/jobs"
	"github.com/audiarr/audiarr/internal/library"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/mediaserver"
	"github.com/audiarr/audiarr/internal/metadata"
	"github.com/audiarr/audiarr/internal/notify"
	"github.com/audiarr/audiarr/internal/pipeline"
	"github.com/audiarr/audiarr/internal/store"
	"github.com/audiarr/audiarr/internal/websocket"
)

// App holds the shared components of a running instance.
type App struct {
	cfg     *config.Config
	dbConn  *sql.DB
	st      *store.Store
	clients *downloadclient.Manager
	proc    *pipeline.Processor
	hub     *websocket.Hub
	jobMgr  *jobs.JobManager
	version string
}

// New loads configuration, opens the database, runs migrations, and wires
// the pipeline. The websocket hub is created but not started; callers run
// it themselves.
func New(version string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.Debug)

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	st := store.New(database)
	if err := bootstrapAdmin(st); err != nil {
		database.Close()
		return nil, err
	}

	clients, err := downloadclient.NewManager(st, cfg.Download.Dir)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to build download clients: %w", err)
	}

	var libraryClient mediaserver.Client
	if cfg.MediaServer.URL != "" {
		libraryClient, err = mediaserver.New(cfg.MediaServer.Type, cfg.MediaServer.URL, cfg.MediaServer.Token)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to build media server client: %w", err)
		}
	} else {
		logger.Warn().Msg("no media server configured, library matching is disabled")
	}

	var lookup metadata.Lookup
	if cfg.Metadata.Region != "" {
		lookup = metadata.New(cfg.Metadata.Region)
	}

	hub := websocket.NewHub()
	proc := pipeline.New(pipeline.Deps{
		Store:     st,
		Config:    cfg,
		Clients:   clients,
		Searcher:  indexer.New(cfg.Indexer.URL, cfg.Indexer.APIKey),
		Metadata:  lookup,
		Library:   libraryClient,
		Organizer: library.NewOrganizer(cfg.Library.Path),
		Notifier:  notify.New(cfg.Notify.WebhookURL),
		Hub:       hub,
	})

	jobMgr := jobs.NewManager()
	jobs.RegisterAll(jobMgr)

	logger.Info().Str("version", version).Msg("core application setup complete")
	return &App{
		cfg:     cfg,
		dbConn:  database,
		st:      st,
		clients: clients,
		proc:    proc,
		hub:     hub,
		jobMgr:  jobMgr,
		version: version,
	}, nil
}

// Components are the pre-built pieces NewFromComponents assembles into an
// App. Tests use it to inject in-memory databases and mock adapters.
type Components struct {
	Config     *config.Config
	DB         *sql.DB
	Store      *store.Store
	Clients    *downloadclient.Manager
	Pipeline   *pipeline.Processor
	Hub        *websocket.Hub
	JobManager *jobs.JobManager
	Version    string
}

func NewFromComponents(c Components) *App {
	return &App{
		cfg:     c.Config,
		dbConn:  c.DB,
		st:      c.Store,
		clients: c.Clients,
		proc:    c.Pipeline,
		hub:     c.Hub,
		jobMgr:  c.JobManager,
		version: c.Version,
	}
}

// bootstrapAdmin creates the initial admin user on a fresh database so
// requests always have an owner.
func bootstrapAdmin(st *store.Store) error {
	count, err := st.CountUsers()
	if err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := st.CreateUser("admin", "admin"); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logger.Info().Msg("created initial admin user")
	return nil
}

func (a *App) Config() *config.Config           { return a.cfg }
func (a *App) DB() *sql.DB                      { return a.dbConn }
func (a *App) Store() *store.Store              { return a.st }
func (a *App) Clients() *downloadclient.Manager { return a.clients }
func (a *App) Pipeline() *pipeline.Processor    { return a.proc }
func (a *App) WsHub() *websocket.Hub            { return a.hub }
func (a *App) JobManager() *jobs.JobManager     { return a.jobMgr }
func (a *App) Version() string                  { return a.version }

// Close releases the application's resources.
func (a *App) Close() {
	if a.dbConn != nil {
		a.dbConn.Close()
	}
}
