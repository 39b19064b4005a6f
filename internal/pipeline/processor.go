package pipeline

import (
	"fmt"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/indexer"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/mediaserver"
	"github.com/audiarr/audiarr/internal/metadata"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/notify"
	"github.com/audiarr/audiarr/internal/store"
)

// Organizer moves a finished download into the library layout and
// returns the destination folder. TitleDir reports where a work's files
// live so cleanup can remove exactly that folder.
type Organizer interface {
	Organize(srcPath string, work *models.Work) (string, error)
	TitleDir(work *models.Work) string
}

// ProgressBroadcaster pushes live updates to connected clients.
type ProgressBroadcaster interface {
	BroadcastProgress(models.ProgressUpdate)
}

// Processor executes the pipeline jobs. One instance serves the whole
// process; jobs are serialized per name by the job manager, so methods
// only need to be safe against concurrent runs of *different* jobs.
type Processor struct {
	store     *store.Store
	cfg       *config.Config
	clients   *downloadclient.Manager
	searcher  indexer.Searcher
	metadata  metadata.Lookup    // nil when lookups are unconfigured
	library   mediaserver.Client // nil when no media server is configured
	organizer Organizer
	notifier  *notify.Dispatcher
	hub       ProgressBroadcaster // nil when running headless
}

// Deps collects what a Processor needs. Searcher, store, config, clients
// and organizer are required; the rest degrade gracefully when nil.
type Deps struct {
	Store     *store.Store
	Config    *config.Config
	Clients   *downloadclient.Manager
	Searcher  indexer.Searcher
	Metadata  metadata.Lookup
	Library   mediaserver.Client
	Organizer Organizer
	Notifier  *notify.Dispatcher
	Hub       ProgressBroadcaster
}

func New(deps Deps) *Processor {
	return &Processor{
		store:     deps.Store,
		cfg:       deps.Config,
		clients:   deps.Clients,
		searcher:  deps.Searcher,
		metadata:  deps.Metadata,
		library:   deps.Library,
		organizer: deps.Organizer,
		notifier:  deps.Notifier,
		hub:       deps.Hub,
	}
}

// setStatus validates and applies one transition. A stale `from` (the
// request moved on since it was loaded) surfaces as an invalid-transition
// error; callers treat that as "someone else got here first" and no-op.
func (p *Processor) setStatus(req *models.Request, to models.RequestStatus, errorMessage string) error {
	current, err := p.store.GetRequest(req.ID)
	if err != nil {
		return err
	}
	if current.Status != req.Status {
		return fmt.Errorf("%w: request %d moved from %s to %s concurrently",
			ErrInvalidTransition, req.ID, req.Status, current.Status)
	}
	if err := CheckTransition(req.Status, to); err != nil {
		return err
	}
	if err := p.store.UpdateRequestStatus(req.ID, to, errorMessage); err != nil {
		return err
	}
	req.Status = to
	req.ErrorMessage = errorMessage
	p.broadcast(req, 0, errorMessage)
	return nil
}

// fail marks a request failed with the translated error message. Used by
// every processor when an external call gives up.
func (p *Processor) fail(req *models.Request, stage string, cause error) {
	msg := fmt.Sprintf("%s: %v", stage, cause)
	logger.Error().Int64("request", req.ID).Str("stage", stage).Err(cause).Msg("request failed")
	if err := p.setStatus(req, models.StatusFailed, msg); err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("recording failure status")
	}
}

func (p *Processor) broadcast(req *models.Request, progress float64, message string) {
	if p.hub == nil {
		return
	}
	p.hub.BroadcastProgress(models.ProgressUpdate{
		RequestID: req.ID,
		Status:    string(req.Status),
		Progress:  progress,
		Message:   message,
	})
}

// workFor loads the catalog entry behind a request.
func (p *Processor) workFor(req *models.Request) (*models.Work, error) {
	return p.store.GetWork(req.WorkID)
}
