package downloadclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
)

// nzbget speaks the NZBGet JSON-RPC API with HTTP basic auth.
type nzbget struct {
	cfg  *models.DownloadClientConfig
	http *resty.Client
	base string
}

func newNZBGet(cfg *models.DownloadClientConfig) *nzbget {
	return &nzbget{cfg: cfg, http: newHTTPClient(), base: baseURL(cfg) + "/jsonrpc"}
}

func (n *nzbget) Name() string              { return string(models.ClientNZBGet) }
func (n *nzbget) Protocol() models.Protocol { return models.ProtocolUsenet }

func (n *nzbget) call(ctx context.Context, method string, params []any, out any) error {
	resp, err := n.http.R().
		SetContext(ctx).
		SetBasicAuth(n.cfg.Username, n.cfg.Password).
		SetBody(map[string]any{
			"method": method,
			"params": params,
		}).
		Post(n.base)
	if err != nil {
		return classify(n.Name(), err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return authError(n.Name(), fmt.Errorf("rpc returned %d", resp.StatusCode()))
	}
	if resp.IsError() {
		return classify(n.Name(), fmt.Errorf("rpc returned %d", resp.StatusCode()))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return classify(n.Name(), fmt.Errorf("malformed rpc response: %w", err))
	}
	if envelope.Error != nil {
		return classify(n.Name(), fmt.Errorf("rpc error: %s", envelope.Error.Message))
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return classify(n.Name(), fmt.Errorf("malformed rpc result: %w", err))
		}
	}
	return nil
}

func (n *nzbget) Test(ctx context.Context) error {
	var version string
	return n.call(ctx, "version", nil, &version)
}

func (n *nzbget) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	category := opts.Category
	if category == "" {
		category = n.cfg.Category
	}
	// append(NZBFilename, Content, Category, Priority, AddToTop,
	// AddPaused, DupeKey, DupeScore, DupeMode). Content may be a URL.
	var id int64
	err := n.call(ctx, "append", []any{
		"", downloadURL, category, opts.Priority, false, false, "", 0, "SCORE",
	}, &id)
	if err != nil {
		return "", err
	}
	if id <= 0 {
		return "", classify(n.Name(), fmt.Errorf("append rejected the nzb (id %d)", id))
	}
	return fmt.Sprintf("%d", id), nil
}

type nzbGroup struct {
	NZBID            int64  `json:"NZBID"`
	NZBName          string `json:"NZBName"`
	Status           string `json:"Status"`
	FileSizeLo       int64  `json:"FileSizeLo"`
	FileSizeMB       int64  `json:"FileSizeMB"`
	DownloadedSizeMB int64  `json:"DownloadedSizeMB"`
	DestDir          string `json:"DestDir"`
}

func (n *nzbget) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	var nzbID int64
	if _, err := fmt.Sscanf(id, "%d", &nzbID); err != nil {
		return nil, classify(n.Name(), fmt.Errorf("bad nzb id %q", id))
	}

	var groups []nzbGroup
	if err := n.call(ctx, "listgroups", []any{0}, &groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.NZBID != nzbID {
			continue
		}
		progress := 0.0
		if g.FileSizeMB > 0 {
			progress = float64(g.DownloadedSizeMB) / float64(g.FileSizeMB) * 100
		}
		state := StateDownloading
		if g.Status == "PAUSED" {
			state = StatePaused
		}
		return &DownloadStatus{
			ID:           id,
			Name:         g.NZBName,
			Progress:     progress,
			State:        state,
			DownloadPath: g.DestDir,
			SizeBytes:    g.FileSizeMB * 1024 * 1024,
		}, nil
	}

	var history []nzbGroup
	if err := n.call(ctx, "history", []any{false}, &history); err != nil {
		return nil, err
	}
	for _, h := range history {
		if h.NZBID != nzbID {
			continue
		}
		state := StateCompleted
		if h.Status != "SUCCESS" && h.Status != "SUCCESS/ALL" && h.Status != "SUCCESS/UNPACK" {
			state = StateError
		}
		return &DownloadStatus{
			ID:           id,
			Name:         h.NZBName,
			Progress:     100,
			State:        state,
			DownloadPath: h.DestDir,
			SizeBytes:    h.FileSizeMB * 1024 * 1024,
		}, nil
	}

	return nil, nil
}

func (n *nzbget) Delete(ctx context.Context, id string, deleteFiles bool) error {
	var nzbID int64
	if _, err := fmt.Sscanf(id, "%d", &nzbID); err != nil {
		return classify(n.Name(), fmt.Errorf("bad nzb id %q", id))
	}
	command := "GroupDelete"
	if deleteFiles {
		command = "GroupFinalDelete"
	}
	var ok bool
	err := n.call(ctx, "editqueue", []any{command, "", []int64{nzbID}}, &ok)
	if err != nil {
		return err
	}
	// editqueue answers false for ids it no longer holds; the download is
	// gone either way.
	return nil
}
