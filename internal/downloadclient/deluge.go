package downloadclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/pathmap"
)

// deluge speaks the Deluge web JSON-RPC. auth.login establishes a session
// cookie the resty client carries afterwards.
type deluge struct {
	cfg         *models.DownloadClientConfig
	http        *resty.Client
	rpcURL      string
	requestID   atomic.Int64
	loggedIn    bool
	downloadDir string
	mapping     pathmap.Config
}

func newDeluge(cfg *models.DownloadClientConfig, downloadDir string, mapping pathmap.Config) *deluge {
	return &deluge{
		cfg:         cfg,
		http:        newHTTPClient(),
		rpcURL:      baseURL(cfg) + "/json",
		downloadDir: downloadDir,
		mapping:     mapping,
	}
}

func (d *deluge) Name() string              { return string(models.ClientDeluge) }
func (d *deluge) Protocol() models.Protocol { return models.ProtocolTorrent }

type delugeError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (d *deluge) call(ctx context.Context, method string, params []any, out any) error {
	resp, err := d.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"method": method,
			"params": params,
			"id":     d.requestID.Add(1),
		}).
		Post(d.rpcURL)
	if err != nil {
		return classify(d.Name(), err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return authError(d.Name(), fmt.Errorf("rpc returned %d", resp.StatusCode()))
	}
	if resp.IsError() {
		return classify(d.Name(), fmt.Errorf("rpc returned %d", resp.StatusCode()))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *delugeError    `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return classify(d.Name(), fmt.Errorf("malformed rpc response: %w", err))
	}
	if envelope.Error != nil {
		return classify(d.Name(), fmt.Errorf("rpc error: %s", envelope.Error.Message))
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return classify(d.Name(), fmt.Errorf("malformed rpc result: %w", err))
		}
	}
	return nil
}

func (d *deluge) login(ctx context.Context) error {
	if d.loggedIn {
		return nil
	}
	var ok bool
	if err := d.call(ctx, "auth.login", []any{d.cfg.Password}, &ok); err != nil {
		return err
	}
	if !ok {
		return authError(d.Name(), fmt.Errorf("auth.login rejected the password"))
	}
	d.loggedIn = true
	return nil
}

func (d *deluge) Test(ctx context.Context) error {
	d.loggedIn = false
	if err := d.login(ctx); err != nil {
		return err
	}
	var connected bool
	return d.call(ctx, "web.connected", nil, &connected)
}

func (d *deluge) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	if err := d.login(ctx); err != nil {
		return "", err
	}

	category := opts.Category
	if category == "" {
		category = d.cfg.Category
	}
	var completion string
	if err := d.call(ctx, "core.get_config_value", []any{"download_location"}, &completion); err != nil {
		return "", err
	}
	savePath, relative := CategorySavePath(completion, d.downloadDir, category, d.mapping)
	if relative {
		savePath = strings.TrimSuffix(completion, "/") + "/" + savePath
	}
	options := map[string]any{"download_location": savePath}

	method := "core.add_torrent_url"
	if strings.HasPrefix(strings.ToLower(downloadURL), "magnet:") {
		method = "core.add_torrent_magnet"
	}
	var hash *string
	if err := d.call(ctx, method, []any{downloadURL, options}, &hash); err != nil {
		// Deluge rejects duplicates with an error rather than returning
		// the existing hash; treat that as the backend's de-dup.
		if strings.Contains(err.Error(), "already") {
			if m := magnetHashRe.FindStringSubmatch(downloadURL); m != nil {
				return strings.ToLower(m[1]), nil
			}
		}
		return "", err
	}
	if hash == nil || *hash == "" {
		return "", classify(d.Name(), fmt.Errorf("add returned no torrent id"))
	}
	return *hash, nil
}

func (d *deluge) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	if err := d.login(ctx); err != nil {
		return nil, err
	}

	keys := []string{"name", "progress", "state", "save_path", "total_size", "ratio", "seeding_time"}
	var status map[string]json.RawMessage
	if err := d.call(ctx, "core.get_torrent_status", []any{id, keys}, &status); err != nil {
		return nil, err
	}
	// Deluge answers with an empty dict for unknown hashes.
	if len(status) == 0 {
		return nil, nil
	}

	var parsed struct {
		Name        string  `json:"name"`
		Progress    float64 `json:"progress"` // 0-100 already
		State       string  `json:"state"`
		SavePath    string  `json:"save_path"`
		TotalSize   int64   `json:"total_size"`
		Ratio       float64 `json:"ratio"`
		SeedingTime int64   `json:"seeding_time"`
	}
	merged, _ := json.Marshal(status)
	if err := json.Unmarshal(merged, &parsed); err != nil {
		return nil, classify(d.Name(), fmt.Errorf("malformed torrent status: %w", err))
	}

	return &DownloadStatus{
		ID:           id,
		Name:         parsed.Name,
		Progress:     parsed.Progress,
		State:        delugeState(parsed.State),
		DownloadPath: strings.TrimSuffix(parsed.SavePath, "/") + "/" + parsed.Name,
		SizeBytes:    parsed.TotalSize,
		Ratio:        parsed.Ratio,
		SeedingTime:  time.Duration(parsed.SeedingTime) * time.Second,
	}, nil
}

func delugeState(state string) string {
	switch state {
	case "Seeding":
		return StateCompleted
	case "Paused":
		return StatePaused
	case "Error":
		return StateError
	case "Queued", "Checking", "Allocating":
		return StateQueued
	}
	return StateDownloading
}

func (d *deluge) Delete(ctx context.Context, id string, deleteFiles bool) error {
	if err := d.login(ctx); err != nil {
		return err
	}
	var removed bool
	err := d.call(ctx, "core.remove_torrent", []any{id, deleteFiles}, &removed)
	if err != nil && strings.Contains(err.Error(), "not in session") {
		// Already gone.
		return nil
	}
	return err
}
