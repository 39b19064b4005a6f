package downloadclient

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
)

// sabnzbd speaks the SABnzbd query API, authenticated by API key.
type sabnzbd struct {
	cfg  *models.DownloadClientConfig
	http *resty.Client
	base string
}

func newSABnzbd(cfg *models.DownloadClientConfig) *sabnzbd {
	return &sabnzbd{cfg: cfg, http: newHTTPClient(), base: baseURL(cfg)}
}

func (s *sabnzbd) Name() string              { return string(models.ClientSABnzbd) }
func (s *sabnzbd) Protocol() models.Protocol { return models.ProtocolUsenet }

func (s *sabnzbd) api(ctx context.Context, params map[string]string, out any) error {
	req := s.http.R().
		SetContext(ctx).
		SetQueryParam("apikey", s.cfg.APIKey).
		SetQueryParam("output", "json").
		SetQueryParams(params)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Get(s.base + "/api")
	if err != nil {
		return classify(s.Name(), err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return authError(s.Name(), fmt.Errorf("api returned %d", resp.StatusCode()))
	}
	if resp.IsError() {
		return classify(s.Name(), fmt.Errorf("api returned %d", resp.StatusCode()))
	}
	return nil
}

func (s *sabnzbd) Test(ctx context.Context) error {
	var version struct {
		Version string `json:"version"`
		Error   string `json:"error"`
	}
	if err := s.api(ctx, map[string]string{"mode": "version"}, &version); err != nil {
		return err
	}
	if version.Error != "" {
		return authError(s.Name(), fmt.Errorf("%s", version.Error))
	}
	return nil
}

func (s *sabnzbd) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	category := opts.Category
	if category == "" {
		category = s.cfg.Category
	}
	var result struct {
		Status bool     `json:"status"`
		NzoIDs []string `json:"nzo_ids"`
		Error  string   `json:"error"`
	}
	params := map[string]string{
		"mode": "addurl",
		"name": downloadURL,
		"cat":  category,
	}
	if opts.Priority != 0 {
		params["priority"] = strconv.Itoa(opts.Priority)
	}
	if err := s.api(ctx, params, &result); err != nil {
		return "", err
	}
	if !result.Status || len(result.NzoIDs) == 0 {
		if result.Error != "" {
			return "", classify(s.Name(), fmt.Errorf("addurl failed: %s", result.Error))
		}
		return "", classify(s.Name(), fmt.Errorf("addurl returned no nzo id"))
	}
	return result.NzoIDs[0], nil
}

type sabQueueSlot struct {
	NzoID      string `json:"nzo_id"`
	Filename   string `json:"filename"`
	Percentage string `json:"percentage"`
	Status     string `json:"status"`
	MB         string `json:"mb"`
}

type sabHistorySlot struct {
	NzoID   string `json:"nzo_id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Bytes   int64  `json:"bytes"`
}

// Get checks the live queue first, then history for completed jobs.
func (s *sabnzbd) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	var queue struct {
		Queue struct {
			Slots []sabQueueSlot `json:"slots"`
		} `json:"queue"`
	}
	if err := s.api(ctx, map[string]string{"mode": "queue", "nzo_ids": id}, &queue); err != nil {
		return nil, err
	}
	for _, slot := range queue.Queue.Slots {
		if slot.NzoID != id {
			continue
		}
		progress, _ := strconv.ParseFloat(slot.Percentage, 64)
		mb, _ := strconv.ParseFloat(slot.MB, 64)
		state := StateDownloading
		if slot.Status == "Paused" {
			state = StatePaused
		}
		return &DownloadStatus{
			ID:        slot.NzoID,
			Name:      slot.Filename,
			Progress:  progress,
			State:     state,
			SizeBytes: int64(mb * 1024 * 1024),
		}, nil
	}

	var history struct {
		History struct {
			Slots []sabHistorySlot `json:"slots"`
		} `json:"history"`
	}
	if err := s.api(ctx, map[string]string{"mode": "history", "nzo_ids": id}, &history); err != nil {
		return nil, err
	}
	for _, slot := range history.History.Slots {
		if slot.NzoID != id {
			continue
		}
		state := StateCompleted
		progress := 100.0
		if slot.Status == "Failed" {
			state = StateError
		}
		return &DownloadStatus{
			ID:           slot.NzoID,
			Name:         slot.Name,
			Progress:     progress,
			State:        state,
			DownloadPath: slot.Storage,
			SizeBytes:    slot.Bytes,
		}, nil
	}

	// Neither queue nor history knows the id.
	return nil, nil
}

func (s *sabnzbd) Delete(ctx context.Context, id string, deleteFiles bool) error {
	delFiles := "0"
	if deleteFiles {
		delFiles = "1"
	}
	// Remove from the queue and the history; unknown ids are no-ops on
	// both, which is the tolerance we want.
	if err := s.api(ctx, map[string]string{
		"mode": "queue", "name": "delete", "value": id, "del_files": delFiles,
	}, nil); err != nil {
		return err
	}
	return s.api(ctx, map[string]string{
		"mode": "history", "name": "delete", "value": id, "del_files": delFiles,
	}, nil)
}
