package downloadclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/pathmap"
)

// transmission speaks the Transmission RPC protocol. A 409 response
// carries the session id header the next attempt must echo back.
type transmission struct {
	cfg         *models.DownloadClientConfig
	http        *resty.Client
	rpcURL      string
	sessionID   string
	downloadDir string
	mapping     pathmap.Config
}

func newTransmission(cfg *models.DownloadClientConfig, downloadDir string, mapping pathmap.Config) *transmission {
	return &transmission{
		cfg:         cfg,
		http:        newHTTPClient(),
		rpcURL:      baseURL(cfg) + "/transmission/rpc",
		downloadDir: downloadDir,
		mapping:     mapping,
	}
}

func (t *transmission) Name() string              { return string(models.ClientTransmission) }
func (t *transmission) Protocol() models.Protocol { return models.ProtocolTorrent }

type transmissionRequest struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type transmissionResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments"`
}

// call runs one RPC round trip, handling the 409 session-id handshake and
// basic-auth rejections.
func (t *transmission) call(ctx context.Context, method string, args map[string]any) (json.RawMessage, error) {
	body := transmissionRequest{Method: method, Arguments: args}

	for attempt := 0; attempt < 2; attempt++ {
		req := t.http.R().
			SetContext(ctx).
			SetHeader("X-Transmission-Session-Id", t.sessionID).
			SetBody(body)
		if t.cfg.Username != "" {
			req.SetBasicAuth(t.cfg.Username, t.cfg.Password)
		}
		resp, err := req.Post(t.rpcURL)
		if err != nil {
			return nil, classify(t.Name(), err)
		}
		switch resp.StatusCode() {
		case 409:
			t.sessionID = resp.Header().Get("X-Transmission-Session-Id")
			continue
		case 401, 403:
			return nil, authError(t.Name(), fmt.Errorf("rpc returned %d", resp.StatusCode()))
		}
		if resp.IsError() {
			return nil, classify(t.Name(), fmt.Errorf("rpc returned %d", resp.StatusCode()))
		}

		var parsed transmissionResponse
		if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
			return nil, classify(t.Name(), fmt.Errorf("malformed rpc response: %w", err))
		}
		if parsed.Result != "success" {
			return nil, classify(t.Name(), fmt.Errorf("rpc result: %s", parsed.Result))
		}
		return parsed.Arguments, nil
	}
	return nil, classify(t.Name(), fmt.Errorf("session id handshake did not converge"))
}

func (t *transmission) Test(ctx context.Context) error {
	_, err := t.call(ctx, "session-get", nil)
	return err
}

// downloadDirFor computes where this torrent should land, in the
// backend's namespace, falling back to Transmission's own download-dir
// when the category path cannot be expressed under it.
func (t *transmission) downloadDirFor(ctx context.Context, category string) (string, error) {
	raw, err := t.call(ctx, "session-get", nil)
	if err != nil {
		return "", err
	}
	var session struct {
		DownloadDir string `json:"download-dir"`
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return "", classify(t.Name(), fmt.Errorf("malformed session-get response: %w", err))
	}

	savePath, relative := CategorySavePath(session.DownloadDir, t.downloadDir, category, t.mapping)
	if relative {
		if savePath == "" {
			return session.DownloadDir, nil
		}
		return session.DownloadDir + "/" + savePath, nil
	}
	return savePath, nil
}

func (t *transmission) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	category := opts.Category
	if category == "" {
		category = t.cfg.Category
	}
	dir, err := t.downloadDirFor(ctx, category)
	if err != nil {
		return "", err
	}

	raw, err := t.call(ctx, "torrent-add", map[string]any{
		"filename":     downloadURL,
		"download-dir": dir,
	})
	if err != nil {
		return "", err
	}

	var added struct {
		TorrentAdded     *struct{ HashString string `json:"hashString"` } `json:"torrent-added"`
		TorrentDuplicate *struct{ HashString string `json:"hashString"` } `json:"torrent-duplicate"`
	}
	if err := json.Unmarshal(raw, &added); err != nil {
		return "", classify(t.Name(), fmt.Errorf("malformed torrent-add response: %w", err))
	}
	// A duplicate add returns the existing torrent; that is the backend's
	// own de-dup doing its job.
	switch {
	case added.TorrentAdded != nil:
		return added.TorrentAdded.HashString, nil
	case added.TorrentDuplicate != nil:
		return added.TorrentDuplicate.HashString, nil
	}
	return "", classify(t.Name(), fmt.Errorf("torrent-add returned no torrent"))
}

var transmissionFields = []string{
	"hashString", "name", "percentDone", "status", "downloadDir",
	"totalSize", "uploadRatio", "secondsSeeding", "isFinished",
}

func (t *transmission) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	raw, err := t.call(ctx, "torrent-get", map[string]any{
		"ids":    []string{id},
		"fields": transmissionFields,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Torrents []struct {
			HashString     string  `json:"hashString"`
			Name           string  `json:"name"`
			PercentDone    float64 `json:"percentDone"` // 0-1
			Status         int     `json:"status"`
			DownloadDir    string  `json:"downloadDir"`
			TotalSize      int64   `json:"totalSize"`
			UploadRatio    float64 `json:"uploadRatio"`
			SecondsSeeding int64   `json:"secondsSeeding"`
		} `json:"torrents"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, classify(t.Name(), fmt.Errorf("malformed torrent-get response: %w", err))
	}
	if len(parsed.Torrents) == 0 {
		return nil, nil
	}

	tor := parsed.Torrents[0]
	return &DownloadStatus{
		ID:           tor.HashString,
		Name:         tor.Name,
		Progress:     tor.PercentDone * 100,
		State:        transmissionState(tor.Status, tor.PercentDone),
		DownloadPath: tor.DownloadDir + "/" + tor.Name,
		SizeBytes:    tor.TotalSize,
		Ratio:        tor.UploadRatio,
		SeedingTime:  time.Duration(tor.SecondsSeeding) * time.Second,
	}, nil
}

// Transmission status codes: 0 stopped, 3 queued to download,
// 4 downloading, 5 queued to seed, 6 seeding.
func transmissionState(status int, percentDone float64) string {
	switch status {
	case 0:
		if percentDone >= 1 {
			return StateCompleted
		}
		return StatePaused
	case 3:
		return StateQueued
	case 4:
		return StateDownloading
	case 5, 6:
		return StateCompleted
	}
	return StateDownloading
}

func (t *transmission) Delete(ctx context.Context, id string, deleteFiles bool) error {
	_, err := t.call(ctx, "torrent-remove", map[string]any{
		"ids":               []string{id},
		"delete-local-data": deleteFiles,
	})
	// Removing an unknown id still reports success; nothing else to
	// tolerate here.
	return err
}
