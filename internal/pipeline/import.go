package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/mediaserver"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/notify"
)

// Import organizes a completed download into the library and checks for
// an immediate library match. Matched requests become available;
// unmatched ones rest at downloaded until a scan finds them.
func (p *Processor) Import(ctx context.Context, requestID int64) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	if req.Status != models.StatusProcessing {
		logger.Debug().Int64("request", req.ID).Str("status", string(req.Status)).Msg("import skipped")
		return nil
	}

	download, ok, err := p.store.GetSelectedDownload(req.ID)
	if err != nil {
		return err
	}
	if !ok {
		p.fail(req, "import", fmt.Errorf("no selected download for request"))
		return nil
	}

	work, err := p.workFor(req)
	if err != nil {
		return err
	}

	if err := p.store.IncrementAttempts(req.ID, "import_attempts"); err != nil {
		return err
	}

	srcPath := download.DownloadPath
	if srcPath == "" {
		p.deferImport(req, "download path unknown")
		return nil
	}
	if _, err := os.Stat(srcPath); err != nil {
		p.deferImport(req, fmt.Sprintf("download path %s not accessible", srcPath))
		return nil
	}

	destDir, err := p.organizer.Organize(srcPath, work)
	if err != nil {
		p.deferImport(req, fmt.Sprintf("organizing: %v", err))
		return nil
	}
	logger.Info().Int64("request", req.ID).Str("dest", destDir).Msg("download organized into library")

	if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusImported); err != nil {
		return err
	}

	if p.matchAfterImport(ctx, req, work) {
		return nil
	}

	if err := p.setStatus(req, models.StatusDownloaded, ""); err != nil {
		return err
	}
	if err := p.store.UpdateRequestProgress(req.ID, 100); err != nil {
		return err
	}
	p.notifier.Send(ctx, notify.EventDownloadComplete, req.ID, work.Title, "organized, awaiting library scan")
	return nil
}

// matchAfterImport asks the media server for the freshly imported work so
// availability can be confirmed in the same pass. Absence or errors are
// fine; the periodic scan will catch up.
func (p *Processor) matchAfterImport(ctx context.Context, req *models.Request, work *models.Work) bool {
	if p.library == nil {
		return false
	}
	item, err := p.library.Match(ctx, mediaserver.MatchQuery{
		ASIN:     work.ASIN,
		Title:    work.Title,
		Author:   work.Author,
		Narrator: work.Narrator,
	})
	if err != nil {
		logger.Warn().Int64("request", req.ID).Err(err).Msg("post-import library match failed")
		return false
	}
	if item == nil {
		return false
	}

	itemID, err := p.store.UpsertLibraryItem(item, time.Now())
	if err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("recording matched library item")
		return false
	}
	if err := p.store.LinkWorkToLibraryItem(work.ID, &itemID); err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("linking work to library item")
	}
	if err := p.store.MarkRequestAvailable(req.ID); err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("marking request available")
		return false
	}
	if err := p.store.IncrementStat("requests_completed"); err != nil {
		logger.Warn().Err(err).Msg("bumping requests_completed")
	}
	req.Status = models.StatusAvailable
	p.broadcast(req, 100, "available in library")
	p.notifier.Send(ctx, notify.EventRequestAvailable, req.ID, work.Title, "")
	return true
}

// deferImport parks a request in awaiting_import, or fails it once the
// attempt budget is spent.
func (p *Processor) deferImport(req *models.Request, reason string) {
	current, err := p.store.GetRequest(req.ID)
	if err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("reloading request")
		return
	}
	if p.cfg.Search.MaxAttempts > 0 && current.ImportAttempts >= p.cfg.Search.MaxAttempts {
		p.fail(req, "import", fmt.Errorf("%s (after %d attempts)", reason, current.ImportAttempts))
		return
	}
	if err := p.setStatus(req, models.StatusAwaitingImport, reason); err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("parking request for import retry")
	}
}
