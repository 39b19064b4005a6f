package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
)

// DeleteRequest soft-deletes a request and cleans up whatever its
// download left behind: the client entry per the seeding policy, and the
// organized media files. The row survives for historical counts.
func (p *Processor) DeleteRequest(ctx context.Context, requestID, deletedBy int64) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	if err := p.store.SoftDeleteRequest(req.ID, deletedBy); err != nil {
		return err
	}
	p.cleanupDownload(ctx, req)
	p.deleteMediaFiles(req)
	return nil
}

// cleanupDownload applies the seeding policy to the request's selected
// download. Torrents completed but short of the seeding requirement stay
// in the client; everything else is removed.
func (p *Processor) cleanupDownload(ctx context.Context, req *models.Request) {
	download, ok, err := p.store.GetSelectedDownload(req.ID)
	if err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("loading download for cleanup")
		return
	}
	if !ok || download.ClientDownloadID == nil {
		return
	}

	adapter := p.clients.AdapterFor(download.Protocol)
	if adapter == nil {
		logger.Warn().Int64("request", req.ID).Str("protocol", string(download.Protocol)).
			Msg("no client for protocol, skipping client cleanup")
		return
	}

	if download.Protocol != models.ProtocolTorrent {
		// Usenet and direct downloads have no seeding obligation: always
		// delete, tolerating already-gone.
		if err := adapter.Delete(ctx, *download.ClientDownloadID, true); err != nil {
			logger.Warn().Int64("request", req.ID).Err(err).Msg("removing download from client")
		}
		p.markDownloadRemoved(download)
		return
	}

	if p.cfg.Seeding.Unlimited {
		logger.Info().Int64("request", req.ID).Msg("unlimited seeding, torrent kept")
		p.keepSeeding(download)
		return
	}

	status, err := adapter.Get(ctx, *download.ClientDownloadID)
	if err != nil {
		logger.Warn().Int64("request", req.ID).Err(err).Msg("querying torrent before cleanup")
		return
	}
	if status == nil {
		p.markDownloadRemoved(download)
		return
	}

	if status.State != downloadclient.StateCompleted {
		// Incomplete: nothing to seed, delete immediately.
		if err := adapter.Delete(ctx, *download.ClientDownloadID, true); err != nil {
			logger.Warn().Int64("request", req.ID).Err(err).Msg("removing incomplete torrent")
			return
		}
		p.markDownloadRemoved(download)
		return
	}

	if p.seedingMet(status) {
		if err := adapter.Delete(ctx, *download.ClientDownloadID, true); err != nil {
			logger.Warn().Int64("request", req.ID).Err(err).Msg("removing seeded torrent")
			return
		}
		p.markDownloadRemoved(download)
		return
	}

	p.keepSeeding(download)
}

// seedingMet reports whether a completed torrent satisfied the configured
// seeding requirement. Either limit is sufficient; unset limits do not
// count as met.
func (p *Processor) seedingMet(status *downloadclient.DownloadStatus) bool {
	if p.cfg.Seeding.RatioLimit > 0 && status.Ratio >= p.cfg.Seeding.RatioLimit {
		return true
	}
	if p.cfg.Seeding.TimeLimitMinutes > 0 &&
		status.SeedingTime >= time.Duration(p.cfg.Seeding.TimeLimitMinutes)*time.Minute {
		return true
	}
	return false
}

func (p *Processor) keepSeeding(download *models.DownloadHistory) {
	if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusSeeding); err != nil {
		logger.Error().Int64("download", download.ID).Err(err).Msg("marking download seeding")
		return
	}
	if err := p.store.IncrementStat("torrents_kept_seeding"); err != nil {
		logger.Warn().Err(err).Msg("bumping torrents_kept_seeding")
	}
}

func (p *Processor) markDownloadRemoved(download *models.DownloadHistory) {
	if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusRemoved); err != nil {
		logger.Error().Int64("download", download.ID).Err(err).Msg("marking download removed")
		return
	}
	if err := p.store.IncrementStat("cleanup_deletions"); err != nil {
		logger.Warn().Err(err).Msg("bumping cleanup_deletions")
	}
}

// deleteMediaFiles removes the organized files for the request's work.
// Deletion happens at the title-level folder only; author folders and
// anything above them are never touched.
func (p *Processor) deleteMediaFiles(req *models.Request) {
	work, err := p.workFor(req)
	if err != nil {
		logger.Error().Int64("request", req.ID).Err(err).Msg("loading work for file cleanup")
		return
	}
	dir := p.organizer.TitleDir(work)
	if dir == "" {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Error().Str("dir", dir).Err(err).Msg("removing media files")
		return
	}
	logger.Info().Int64("request", req.ID).Str("dir", dir).Msg("media files removed")
}

// CleanupSweep revisits torrents kept for seeding and deletes the ones
// that have since met the requirement.
func (p *Processor) CleanupSweep(ctx context.Context) error {
	seeding, err := p.store.ListDownloadsByStatus(models.DownloadStatusSeeding)
	if err != nil {
		return err
	}
	for _, download := range seeding {
		if download.ClientDownloadID == nil {
			continue
		}
		adapter := p.clients.AdapterFor(download.Protocol)
		if adapter == nil {
			continue
		}
		status, err := adapter.Get(ctx, *download.ClientDownloadID)
		if err != nil {
			logger.Warn().Int64("download", download.ID).Err(err).Msg("querying seeding torrent")
			continue
		}
		if status == nil {
			p.markDownloadRemoved(download)
			continue
		}
		if p.cfg.Seeding.Unlimited || !p.seedingMet(status) {
			continue
		}
		if err := adapter.Delete(ctx, *download.ClientDownloadID, true); err != nil {
			logger.Warn().Int64("download", download.ID).Err(err).Msg("removing seeded torrent")
			continue
		}
		p.markDownloadRemoved(download)
		logger.Info().Int64("download", download.ID).Str("title", download.Title).
			Msg("seeding requirement met, torrent removed")
	}
	return nil
}
