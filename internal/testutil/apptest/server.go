// Shared test server setup, used by the API handler tests.

package apptest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/core"
	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/indexer"
	"github.com/audiarr/audiarr/internal/jobs"
	"github.com/audiarr/audiarr/internal/library"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/notify"
	"github.com/audiarr/audiarr/internal/pipeline"
	"github.com/audiarr/audiarr/internal/store"
	"github.com/audiarr/audiarr/internal/testutil"
	"github.com/audiarr/audiarr/internal/websocket"
)

// FakeSearcher returns canned candidates, or an error, for every query.
type FakeSearcher struct {
	Results []models.Candidate
	Err     error
	Queries []string
}

func (f *FakeSearcher) Search(ctx context.Context, query string, opts indexer.SearchOptions) ([]models.Candidate, error) {
	f.Queries = append(f.Queries, query)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Results, nil
}

// TestEnv bundles the pieces of a wired test application that tests
// commonly reach into.
type TestEnv struct {
	App      *core.App
	DB       *sql.DB
	Store    *store.Store
	Adapter  *downloadclient.Mock
	Searcher *FakeSearcher
}

// SetupTestApp wires a full application on an in-memory database with a
// mock torrent adapter and a canned searcher.
func SetupTestApp(t *testing.T) *TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	st := store.New(db)

	cfg := config.ForTest(t.TempDir(), t.TempDir())
	adapter := downloadclient.NewMock(models.ProtocolTorrent)
	clients := downloadclient.NewManagerWithAdapters(adapter)
	searcher := &FakeSearcher{}

	hub := websocket.NewHub()
	go hub.Run()

	proc := pipeline.New(pipeline.Deps{
		Store:     st,
		Config:    cfg,
		Clients:   clients,
		Searcher:  searcher,
		Organizer: library.NewOrganizer(cfg.Library.Path),
		Notifier:  notify.New(""),
		Hub:       hub,
	})

	jobMgr := jobs.NewManager()
	jobs.RegisterAll(jobMgr)

	app := core.NewFromComponents(core.Components{
		Config:     cfg,
		DB:         db,
		Store:      st,
		Clients:    clients,
		Pipeline:   proc,
		Hub:        hub,
		JobManager: jobMgr,
		Version:    "test",
	})

	return &TestEnv{App: app, DB: db, Store: st, Adapter: adapter, Searcher: searcher}
}
