package pipeline

import (
	"context"
	"fmt"

	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/notify"
	"github.com/audiarr/audiarr/internal/ranking"
)

// GrabInteractive submits a hand-picked candidate. The request is moved
// into searching first when it sits in a parked or retryable status, so
// the grab follows the same transition path as an automatic search.
func (p *Processor) GrabInteractive(ctx context.Context, requestID int64, candidate ranking.RankedCandidate) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	if req.Status != models.StatusSearching {
		if err := p.setStatus(req, models.StatusSearching, ""); err != nil {
			return err
		}
		req.Status = models.StatusSearching
	}
	return p.Grab(ctx, req, candidate)
}

// Grab submits the chosen candidate to whichever client handles its
// protocol and records the selected download history row. Used by both
// the automatic search and the interactive pick.
func (p *Processor) Grab(ctx context.Context, req *models.Request, candidate ranking.RankedCandidate) error {
	protocol := candidate.Candidate.DetectProtocol()
	adapter := p.clients.AdapterFor(protocol)
	if adapter == nil {
		p.fail(req, "download", fmt.Errorf("no %s client configured", protocol))
		return nil
	}

	if err := p.store.IncrementAttempts(req.ID, "download_attempts"); err != nil {
		return err
	}

	category := "audiobooks"
	if cfg := p.clients.ConfigFor(protocol); cfg != nil && cfg.Category != "" {
		category = cfg.Category
	}

	clientID, err := adapter.Add(ctx, candidate.Candidate.DownloadURL, downloadclient.AddOptions{
		Category: category,
	})
	if err != nil {
		p.fail(req, "download", err)
		return nil
	}

	history := &models.DownloadHistory{
		RequestID:      req.ID,
		IndexerID:      candidate.Candidate.IndexerID,
		IndexerName:    candidate.Candidate.IndexerName,
		DownloadClient: adapter.Name(),
		Protocol:       protocol,
		Title:          candidate.Candidate.Title,
		DownloadURL:    candidate.Candidate.DownloadURL,
		SizeBytes:      candidate.Candidate.SizeBytes,
		Seeders:        candidate.Candidate.Seeders,
		Leechers:       candidate.Candidate.Leechers,
		Status:         models.DownloadStatusGrabbed,
		Selected:       true,
	}
	if clientID != "" {
		history.ClientDownloadID = &clientID
	}
	if _, err := p.store.CreateDownloadHistory(history); err != nil {
		return fmt.Errorf("recording download history: %w", err)
	}

	if err := p.setStatus(req, models.StatusDownloading, ""); err != nil {
		logger.Debug().Int64("request", req.ID).Err(err).Msg("grab raced another transition")
		return nil
	}

	logger.Info().Int64("request", req.ID).Str("client", adapter.Name()).
		Str("title", candidate.Candidate.Title).Float64("score", candidate.Total).
		Msg("candidate grabbed")
	p.notifier.Send(ctx, notify.EventDownloadStarted, req.ID, candidate.Candidate.Title, "")
	return nil
}
