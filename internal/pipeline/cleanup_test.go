package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/audiarr/audiarr/internal/downloadclient"
	"github.com/audiarr/audiarr/internal/models"
)

func mediaDir(t *testing.T, env *testEnv) string {
	t.Helper()
	dir := filepath.Join(env.cfg.Library.Path, "Freida McFadden", "The Housemaid")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("creating media dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "book.m4b"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing media file: %v", err)
	}
	env.organizer.titleDir = dir
	return dir
}

func TestDeleteRequestUnmetSeedingKeepsTorrent(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Seeding.RatioLimit = 2.0
	req, download := grabbedRequest(t, env)
	dir := mediaDir(t, env)

	env.torrent.SetStatus(*download.ClientDownloadID, func(s *downloadclient.DownloadStatus) {
		s.State = downloadclient.StateCompleted
		s.Ratio = 0.5
	})

	if err := env.processor.DeleteRequest(context.Background(), req.ID, 1); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}

	if env.torrent.Deleted[*download.ClientDownloadID] {
		t.Errorf("torrent with unmet seeding requirement must be kept")
	}
	download, _, _ = env.store.GetSelectedDownload(req.ID)
	if download.Status != models.DownloadStatusSeeding {
		t.Errorf("download status = %s, want seeding", download.Status)
	}
	stats, _ := env.store.GetStats()
	if stats["torrents_kept_seeding"] != 1 {
		t.Errorf("torrents_kept_seeding = %d", stats["torrents_kept_seeding"])
	}
	// Media files go regardless of the seeding decision.
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("media files should be deleted")
	}

	got := env.reload(t, req.ID)
	if got.DeletedAt == nil {
		t.Errorf("request not soft-deleted")
	}
}

func TestDeleteRequestMetSeedingDeletesTorrent(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Seeding.RatioLimit = 1.0
	req, download := grabbedRequest(t, env)
	mediaDir(t, env)

	env.torrent.SetStatus(*download.ClientDownloadID, func(s *downloadclient.DownloadStatus) {
		s.State = downloadclient.StateCompleted
		s.Ratio = 1.5
	})

	if err := env.processor.DeleteRequest(context.Background(), req.ID, 1); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}
	if !env.torrent.Deleted[*download.ClientDownloadID] {
		t.Errorf("seeded torrent should be deleted")
	}
	download, _, _ = env.store.GetSelectedDownload(req.ID)
	if download.Status != models.DownloadStatusRemoved {
		t.Errorf("download status = %s, want removed", download.Status)
	}
}

func TestDeleteRequestIncompleteTorrentDeletedNow(t *testing.T) {
	env := newTestEnv(t)
	req, download := grabbedRequest(t, env)
	mediaDir(t, env)

	env.torrent.SetStatus(*download.ClientDownloadID, func(s *downloadclient.DownloadStatus) {
		s.State = downloadclient.StateDownloading
		s.Progress = 30
	})

	if err := env.processor.DeleteRequest(context.Background(), req.ID, 1); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}
	if !env.torrent.Deleted[*download.ClientDownloadID] {
		t.Errorf("incomplete torrent must be deleted immediately")
	}
}

func TestDeleteRequestUnlimitedSeedingKeepsTorrent(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Seeding.Unlimited = true
	req, download := grabbedRequest(t, env)
	mediaDir(t, env)

	env.torrent.SetStatus(*download.ClientDownloadID, func(s *downloadclient.DownloadStatus) {
		s.State = downloadclient.StateCompleted
		s.Ratio = 99
	})

	if err := env.processor.DeleteRequest(context.Background(), req.ID, 1); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}
	if env.torrent.Deleted[*download.ClientDownloadID] {
		t.Errorf("unlimited seeding keeps every torrent")
	}
}

func TestDeleteRequestUsenetAlwaysDeletes(t *testing.T) {
	env := newTestEnv(t)
	env.withUsenet()
	env.searcher.candidates = []models.Candidate{{
		IndexerID:   2,
		IndexerName: "NZBHub",
		Title:       "The Housemaid - Freida McFadden [M4B]",
		DownloadURL: "https://x/getnzb?t=get&id=7",
		Seeders:     20,
	}}
	req := env.newRequest(t, models.StatusPending)
	if err := env.processor.Search(context.Background(), req.ID); err != nil {
		t.Fatalf("Search: %v", err)
	}
	download, ok, _ := env.store.GetSelectedDownload(req.ID)
	if !ok {
		t.Fatalf("setup: no selected download")
	}
	mediaDir(t, env)

	if err := env.processor.DeleteRequest(context.Background(), req.ID, 1); err != nil {
		t.Fatalf("DeleteRequest: %v", err)
	}
	if !env.usenet.Deleted[*download.ClientDownloadID] {
		t.Errorf("usenet download must always be deleted")
	}
}

func TestCleanupSweepRemovesSeededTorrents(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Seeding.RatioLimit = 1.0
	_, download := grabbedRequest(t, env)

	if err := env.store.UpdateDownloadStatus(download.ID, models.DownloadStatusSeeding); err != nil {
		t.Fatalf("UpdateDownloadStatus: %v", err)
	}
	env.torrent.SetStatus(*download.ClientDownloadID, func(s *downloadclient.DownloadStatus) {
		s.State = downloadclient.StateCompleted
		s.Ratio = 1.2
	})

	if err := env.processor.CleanupSweep(context.Background()); err != nil {
		t.Fatalf("CleanupSweep: %v", err)
	}
	if !env.torrent.Deleted[*download.ClientDownloadID] {
		t.Errorf("torrent past its ratio should be removed by the sweep")
	}
	download, _, _ = env.store.GetSelectedDownload(download.RequestID)
	if download.Status != models.DownloadStatusRemoved {
		t.Errorf("download status = %s", download.Status)
	}
}

func TestCleanupSweepLeavesUnmetTorrents(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.Seeding.RatioLimit = 2.0
	env.cfg.Seeding.TimeLimitMinutes = 600
	_, download := grabbedRequest(t, env)

	if err := env.store.UpdateDownloadStatus(download.ID, models.DownloadStatusSeeding); err != nil {
		t.Fatalf("UpdateDownloadStatus: %v", err)
	}
	env.torrent.SetStatus(*download.ClientDownloadID, func(s *downloadclient.DownloadStatus) {
		s.State = downloadclient.StateCompleted
		s.Ratio = 0.3
		s.SeedingTime = 5 * time.Minute
	})

	if err := env.processor.CleanupSweep(context.Background()); err != nil {
		t.Fatalf("CleanupSweep: %v", err)
	}
	if env.torrent.Deleted[*download.ClientDownloadID] {
		t.Errorf("torrent short of both limits must keep seeding")
	}
}
