package pipeline

import (
	"context"
	"fmt"

	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
)

// Retry re-dispatches the next job appropriate to where the request got
// stuck, not always the search. Only the four retryable states accept it;
// everything else is rejected naming the current status.
func (p *Processor) Retry(ctx context.Context, requestID int64) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	if !Retryable(req.Status) {
		return fmt.Errorf("request %d cannot be retried from status %s", req.ID, req.Status)
	}
	if err := p.store.ClearRequestError(req.ID); err != nil {
		return err
	}
	req.ErrorMessage = ""

	switch req.Status {
	case models.StatusAwaitingImport:
		if err := p.setStatus(req, models.StatusProcessing, ""); err != nil {
			return err
		}
		return p.Import(ctx, req.ID)

	case models.StatusFailed, models.StatusWarn:
		// A failure after the download completed resumes at import;
		// anything earlier starts the chain over.
		if download, ok, err := p.store.GetSelectedDownload(req.ID); err != nil {
			return err
		} else if ok && downloadFinished(download.Status) {
			if err := p.setStatus(req, models.StatusProcessing, ""); err != nil {
				return err
			}
			return p.Import(ctx, req.ID)
		}
		if err := p.setStatus(req, models.StatusPending, ""); err != nil {
			return err
		}
		return p.Search(ctx, req.ID)

	default: // awaiting_search
		if err := p.setStatus(req, models.StatusPending, ""); err != nil {
			return err
		}
		return p.Search(ctx, req.ID)
	}
}

func downloadFinished(status string) bool {
	switch status {
	case models.DownloadStatusCompleted, models.DownloadStatusImported, models.DownloadStatusSeeding:
		return true
	}
	return false
}

// Cancel marks a request cancelled. It is a status write, not a kill
// signal: in-flight downloads are left alone and later jobs observe the
// status and no-op.
func (p *Processor) Cancel(requestID int64) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	if !Cancellable(req.Status) {
		return fmt.Errorf("request %d cannot be cancelled from status %s", req.ID, req.Status)
	}
	return p.setStatus(req, models.StatusCancelled, "")
}

// Approve releases a request waiting at the approval gate and starts its
// search.
func (p *Processor) Approve(ctx context.Context, requestID int64) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	if req.Status != models.StatusAwaitingApproval {
		return fmt.Errorf("request %d is not awaiting approval (status %s)", req.ID, req.Status)
	}
	if err := p.setStatus(req, models.StatusPending, ""); err != nil {
		return err
	}
	return p.Search(ctx, req.ID)
}

// RetrySweep re-runs searches for requests parked in awaiting_search that
// still have attempt budget. Runs periodically so a release that shows up
// later is eventually found without user action.
func (p *Processor) RetrySweep(ctx context.Context) error {
	waiting, err := p.store.ListRequestsByStatus(models.StatusAwaitingSearch)
	if err != nil {
		return err
	}
	for _, req := range waiting {
		if p.cfg.Search.MaxAttempts > 0 && req.SearchAttempts >= p.cfg.Search.MaxAttempts {
			continue
		}
		logger.Info().Int64("request", req.ID).Int("attempts", req.SearchAttempts).Msg("retry sweep re-searching")
		if err := p.setStatus(req, models.StatusSearching, ""); err != nil {
			continue
		}
		req.Status = models.StatusSearching
		if err := p.Search(ctx, req.ID); err != nil {
			logger.Error().Int64("request", req.ID).Err(err).Msg("retry sweep search failed")
		}
	}
	return nil
}
