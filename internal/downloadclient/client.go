// Package downloadclient wraps the wire protocols of the supported
// download backends behind one adapter contract. Callers never branch on
// the backend type; they ask the manager for whatever handles a protocol
// family and talk to the shared interface.
package downloadclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/pathmap"
)

// AddOptions carries the submission parameters shared by all backends.
type AddOptions struct {
	Category string
	Priority int
}

// Download states normalized across backends.
const (
	StateQueued      = "queued"
	StateDownloading = "downloading"
	StateCompleted   = "completed"
	StatePaused      = "paused"
	StateError       = "error"
)

// DownloadStatus is the backend's view of one download, normalized.
type DownloadStatus struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Progress     float64 `json:"progress"` // 0-100
	State        string  `json:"state"`
	DownloadPath string  `json:"download_path"` // in the backend's namespace
	SizeBytes    int64   `json:"size_bytes"`
	Ratio        float64 `json:"ratio"`
	SeedingTime  time.Duration
}

// Adapter is the protocol-neutral contract every backend implements.
type Adapter interface {
	// Name identifies the adapter for history rows and logs.
	Name() string
	// Protocol is the transport family this adapter serves.
	Protocol() models.Protocol
	// Add submits a torrent/magnet/NZB/direct URL and returns the
	// backend's identifier for it. Re-submitting the same source must not
	// corrupt client state; backends with native de-dup report the
	// existing download.
	Add(ctx context.Context, url string, opts AddOptions) (string, error)
	// Get returns the current state of a download, or (nil, nil) when
	// the backend no longer knows the id. Unknown is not an error:
	// external deletion is expected.
	Get(ctx context.Context, id string) (*DownloadStatus, error)
	// Delete removes a download, optionally with its files. Already-gone
	// counts as success.
	Delete(ctx context.Context, id string, deleteFiles bool) error
	// Test verifies connectivity and credentials, returning a classified
	// error suitable for showing the operator during setup.
	Test(ctx context.Context) error
}

// NewAdapter builds the adapter for a configured backend.
func NewAdapter(cfg *models.DownloadClientConfig, downloadDir string) (Adapter, error) {
	mapping := pathmap.Config{
		Enabled:    cfg.PathMappingEnabled,
		RemotePath: cfg.RemotePath,
		LocalPath:  cfg.LocalPath,
	}
	if err := pathmap.Validate(mapping); err != nil {
		return nil, fmt.Errorf("client %q: %w", cfg.Name, err)
	}

	switch cfg.Type {
	case models.ClientQBittorrent:
		return newQBittorrent(cfg, downloadDir, mapping), nil
	case models.ClientTransmission:
		return newTransmission(cfg, downloadDir, mapping), nil
	case models.ClientDeluge:
		return newDeluge(cfg, downloadDir, mapping), nil
	case models.ClientSABnzbd:
		return newSABnzbd(cfg), nil
	case models.ClientNZBGet:
		return newNZBGet(cfg), nil
	}
	return nil, fmt.Errorf("unknown download client type %q", cfg.Type)
}

// newHTTPClient builds the resty client all adapters share: finite
// timeout, small bounded retry for transient hiccups.
func newHTTPClient() *resty.Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(1)
	client.SetRetryWaitTime(2 * time.Second)
	return client
}

// baseURL assembles the backend's root URL from its connection settings.
func baseURL(cfg *models.DownloadClientConfig) string {
	scheme := "http"
	if cfg.UseTLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port)
}
