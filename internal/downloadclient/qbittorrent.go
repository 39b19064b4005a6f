package downloadclient

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/pathmap"
)

// qbittorrent speaks the WebUI API v2. Authentication is cookie based;
// the resty client keeps the SID cookie between calls.
type qbittorrent struct {
	cfg         *models.DownloadClientConfig
	http        *resty.Client
	base        string
	downloadDir string
	mapping     pathmap.Config
	provisioned bool
}

func newQBittorrent(cfg *models.DownloadClientConfig, downloadDir string, mapping pathmap.Config) *qbittorrent {
	return &qbittorrent{
		cfg:         cfg,
		http:        newHTTPClient(),
		base:        baseURL(cfg),
		downloadDir: downloadDir,
		mapping:     mapping,
	}
}

func (q *qbittorrent) Name() string              { return string(models.ClientQBittorrent) }
func (q *qbittorrent) Protocol() models.Protocol { return models.ProtocolTorrent }

func (q *qbittorrent) login(ctx context.Context) error {
	resp, err := q.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": q.cfg.Username,
			"password": q.cfg.Password,
		}).
		Post(q.base + "/api/v2/auth/login")
	if err != nil {
		return classify(q.Name(), err)
	}
	if resp.StatusCode() == 403 || !strings.Contains(resp.String(), "Ok") {
		return authError(q.Name(), fmt.Errorf("login rejected: %s", resp.String()))
	}
	return nil
}

func (q *qbittorrent) Test(ctx context.Context) error {
	if err := q.login(ctx); err != nil {
		return err
	}
	resp, err := q.http.R().SetContext(ctx).Get(q.base + "/api/v2/app/version")
	if err != nil {
		return classify(q.Name(), err)
	}
	if resp.IsError() {
		return classify(q.Name(), fmt.Errorf("version check returned %d", resp.StatusCode()))
	}
	return nil
}

// ensureCategory creates the category with its save path on first use.
// The save path is computed against the backend's default save path after
// reverse path mapping, relative when possible.
func (q *qbittorrent) ensureCategory(ctx context.Context) error {
	if q.provisioned || q.cfg.Category == "" {
		return nil
	}
	resp, err := q.http.R().SetContext(ctx).Get(q.base + "/api/v2/app/defaultSavePath")
	if err != nil {
		return classify(q.Name(), err)
	}
	completionDir := strings.TrimSpace(resp.String())

	savePath, _ := CategorySavePath(completionDir, q.downloadDir, q.cfg.Category, q.mapping)
	resp, err = q.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"category": q.cfg.Category,
			"savePath": savePath,
		}).
		Post(q.base + "/api/v2/torrents/createCategory")
	if err != nil {
		return classify(q.Name(), err)
	}
	// 409 means the category already exists, which is fine.
	if resp.IsError() && resp.StatusCode() != 409 {
		return classify(q.Name(), fmt.Errorf("createCategory returned %d", resp.StatusCode()))
	}
	q.provisioned = true
	return nil
}

var magnetHashRe = regexp.MustCompile(`xt=urn:btih:([a-fA-F0-9]{40}|[a-zA-Z2-7]{32})`)

func (q *qbittorrent) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	if err := q.login(ctx); err != nil {
		return "", err
	}
	if err := q.ensureCategory(ctx); err != nil {
		return "", err
	}

	category := opts.Category
	if category == "" {
		category = q.cfg.Category
	}
	resp, err := q.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"urls":     downloadURL,
			"category": category,
		}).
		Post(q.base + "/api/v2/torrents/add")
	if err != nil {
		return "", classify(q.Name(), err)
	}
	if resp.IsError() {
		return "", classify(q.Name(), fmt.Errorf("add returned %d", resp.StatusCode()))
	}

	// Magnet links carry the infohash; use it directly.
	if m := magnetHashRe.FindStringSubmatch(downloadURL); m != nil {
		return strings.ToLower(m[1]), nil
	}

	// For .torrent URLs the API does not echo the hash back; the most
	// recently added torrent in our category is ours. Duplicate adds are
	// de-duped by qBittorrent itself, which also lands here correctly.
	time.Sleep(500 * time.Millisecond)
	var torrents []qbTorrent
	resp, err = q.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": category,
			"sort":     "added_on",
			"reverse":  "true",
			"limit":    "1",
		}).
		SetResult(&torrents).
		Get(q.base + "/api/v2/torrents/info")
	if err != nil {
		return "", classify(q.Name(), err)
	}
	if len(torrents) == 0 {
		return "", classify(q.Name(), fmt.Errorf("torrent not visible after add"))
	}
	return torrents[0].Hash, nil
}

type qbTorrent struct {
	Hash        string  `json:"hash"`
	Name        string  `json:"name"`
	Progress    float64 `json:"progress"` // 0-1
	State       string  `json:"state"`
	SavePath    string  `json:"save_path"`
	ContentPath string  `json:"content_path"`
	Size        int64   `json:"size"`
	Ratio       float64 `json:"ratio"`
	SeedingTime int64   `json:"seeding_time"` // seconds
}

func (q *qbittorrent) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	if err := q.login(ctx); err != nil {
		return nil, err
	}
	var torrents []qbTorrent
	resp, err := q.http.R().
		SetContext(ctx).
		SetQueryParam("hashes", id).
		SetResult(&torrents).
		Get(q.base + "/api/v2/torrents/info")
	if err != nil {
		return nil, classify(q.Name(), err)
	}
	if resp.IsError() {
		return nil, classify(q.Name(), fmt.Errorf("info returned %d", resp.StatusCode()))
	}
	if len(torrents) == 0 {
		// The client no longer knows this hash.
		return nil, nil
	}

	t := torrents[0]
	path := t.ContentPath
	if path == "" {
		path = t.SavePath
	}
	return &DownloadStatus{
		ID:           t.Hash,
		Name:         t.Name,
		Progress:     t.Progress * 100,
		State:        qbState(t.State),
		DownloadPath: path,
		SizeBytes:    t.Size,
		Ratio:        t.Ratio,
		SeedingTime:  time.Duration(t.SeedingTime) * time.Second,
	}, nil
}

func qbState(state string) string {
	switch state {
	case "uploading", "stalledUP", "queuedUP", "forcedUP", "pausedUP", "stoppedUP":
		return StateCompleted
	case "pausedDL", "stoppedDL":
		return StatePaused
	case "error", "missingFiles":
		return StateError
	case "queuedDL", "checkingDL", "metaDL", "allocating":
		return StateQueued
	}
	return StateDownloading
}

func (q *qbittorrent) Delete(ctx context.Context, id string, deleteFiles bool) error {
	if err := q.login(ctx); err != nil {
		return err
	}
	resp, err := q.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"hashes":      id,
			"deleteFiles": fmt.Sprintf("%t", deleteFiles),
		}).
		Post(q.base + "/api/v2/torrents/delete")
	if err != nil {
		return classify(q.Name(), err)
	}
	// Unknown hashes return 200 as well; already gone is success.
	if resp.IsError() && resp.StatusCode() != 404 {
		return classify(q.Name(), fmt.Errorf("delete returned %d", resp.StatusCode()))
	}
	return nil
}
