package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/pathmap"
)

// MonitorDownloads polls the download clients for every request in
// flight. Completions hand off to the import step; a client that no
// longer knows a download falls back to the stored path before the
// request is declared failed.
func (p *Processor) MonitorDownloads(ctx context.Context) error {
	requests, err := p.store.ListRequestsByStatus(models.StatusDownloading)
	if err != nil {
		return err
	}
	for _, req := range requests {
		if err := p.monitorOne(ctx, req); err != nil {
			logger.Error().Int64("request", req.ID).Err(err).Msg("monitoring download")
		}
	}
	return nil
}

func (p *Processor) monitorOne(ctx context.Context, req *models.Request) error {
	download, ok, err := p.store.GetSelectedDownload(req.ID)
	if err != nil {
		return err
	}
	if !ok {
		p.fail(req, "monitor", fmt.Errorf("no selected download for request"))
		return nil
	}

	adapter := p.clients.AdapterFor(download.Protocol)
	if adapter == nil {
		p.fail(req, "monitor", fmt.Errorf("no %s client configured", download.Protocol))
		return nil
	}

	if download.ClientDownloadID == nil {
		return p.recoverFromStoredPath(ctx, req, download)
	}

	status, err := adapter.Get(ctx, *download.ClientDownloadID)
	if err != nil {
		// Transient client trouble; leave the request alone and try again
		// next sweep.
		logger.Warn().Int64("request", req.ID).Err(err).Msg("client query failed, will retry")
		return nil
	}
	if status == nil {
		return p.recoverFromStoredPath(ctx, req, download)
	}

	switch status.State {
	case downloadclient.StateCompleted:
		localPath := p.localPath(status.DownloadPath, download.Protocol)
		if localPath != "" && localPath != download.DownloadPath {
			if err := p.store.UpdateDownloadPath(download.ID, localPath); err != nil {
				return err
			}
			download.DownloadPath = localPath
		}
		if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusCompleted); err != nil {
			return err
		}
		if err := p.setStatus(req, models.StatusProcessing, ""); err != nil {
			logger.Debug().Int64("request", req.ID).Err(err).Msg("completion raced another transition")
			return nil
		}
		return p.Import(ctx, req.ID)

	case downloadclient.StateError:
		if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusFailed); err != nil {
			return err
		}
		p.fail(req, "download", fmt.Errorf("client reported an error for %q", download.Title))
		return nil

	default:
		if download.Status != models.DownloadStatusDownloading {
			if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusDownloading); err != nil {
				return err
			}
		}
		if err := p.store.UpdateRequestProgress(req.ID, int(status.Progress)); err != nil {
			return err
		}
		p.broadcast(req, status.Progress, "")
		return nil
	}
}

// recoverFromStoredPath handles a client that forgot the download. The
// path captured at completion time is the durability fallback: when the
// files are still on disk the pipeline proceeds, otherwise the request
// fails.
func (p *Processor) recoverFromStoredPath(ctx context.Context, req *models.Request, download *models.DownloadHistory) error {
	if download.DownloadPath != "" {
		if _, err := os.Stat(download.DownloadPath); err == nil {
			logger.Info().Int64("request", req.ID).Str("path", download.DownloadPath).
				Msg("client forgot the download, files still present")
			if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusCompleted); err != nil {
				return err
			}
			if err := p.setStatus(req, models.StatusProcessing, ""); err != nil {
				return nil
			}
			return p.Import(ctx, req.ID)
		}
	}
	if err := p.store.UpdateDownloadStatus(download.ID, models.DownloadStatusRemoved); err != nil {
		return err
	}
	p.fail(req, "download", fmt.Errorf("download %q disappeared from the client", download.Title))
	return nil
}

// localPath translates a client-reported path into the orchestrator's
// namespace using the protocol's configured mapping.
func (p *Processor) localPath(clientPath string, protocol models.Protocol) string {
	if clientPath == "" {
		return ""
	}
	cfg := p.clients.ConfigFor(protocol)
	if cfg == nil {
		return clientPath
	}
	return pathmap.Transform(clientPath, pathmap.Config{
		Enabled:    cfg.PathMappingEnabled,
		RemotePath: cfg.RemotePath,
		LocalPath:  cfg.LocalPath,
	})
}
