package downloadclient

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
)

// Direct is the pseudo-adapter for sources that are neither torrent nor
// NZB: it fetches the file itself into the download directory and tracks
// progress in memory. There is no remote backend to query, so "the client
// no longer knows the id" simply means a process restart happened.
type Direct struct {
	downloadDir string

	mu        sync.Mutex
	downloads map[string]*DownloadStatus
}

// NewDirect builds the direct-HTTP adapter.
func NewDirect(downloadDir string) *Direct {
	return &Direct{
		downloadDir: downloadDir,
		downloads:   make(map[string]*DownloadStatus),
	}
}

func (d *Direct) Name() string              { return "direct" }
func (d *Direct) Protocol() models.Protocol { return models.ProtocolDirect }

func (d *Direct) Test(ctx context.Context) error {
	return os.MkdirAll(d.downloadDir, 0o755)
}

// Add starts the fetch in the background and returns immediately with a
// stable id derived from the source URL, so re-submitting the same source
// resumes tracking the same slot instead of corrupting anything.
func (d *Direct) Add(ctx context.Context, downloadURL string, opts AddOptions) (string, error) {
	id := fmt.Sprintf("%x", sha1.Sum([]byte(downloadURL)))

	d.mu.Lock()
	if existing, ok := d.downloads[id]; ok && existing.State != StateError {
		d.mu.Unlock()
		return id, nil
	}

	name := fileNameFromURL(downloadURL)
	dir := d.downloadDir
	if opts.Category != "" {
		dir = filepath.Join(dir, opts.Category)
	}
	dest := filepath.Join(dir, name)

	status := &DownloadStatus{
		ID:           id,
		Name:         name,
		State:        StateQueued,
		DownloadPath: dest,
	}
	d.downloads[id] = status
	d.mu.Unlock()

	go d.fetch(downloadURL, dest, id)
	return id, nil
}

func (d *Direct) fetch(downloadURL, dest, id string) {
	update := func(fn func(*DownloadStatus)) {
		d.mu.Lock()
		if s, ok := d.downloads[id]; ok {
			fn(s)
		}
		d.mu.Unlock()
	}

	fail := func(err error) {
		logger.Error().Err(err).Str("url", downloadURL).Msg("direct download failed")
		update(func(s *DownloadStatus) { s.State = StateError })
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		fail(err)
		return
	}

	resp, err := newHTTPClient().SetTimeout(0).R().
		SetDoNotParseResponse(true).
		Get(downloadURL)
	if err != nil {
		fail(err)
		return
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		fail(fmt.Errorf("server returned %d", resp.StatusCode()))
		return
	}

	total := resp.RawResponse.ContentLength
	update(func(s *DownloadStatus) {
		s.State = StateDownloading
		s.SizeBytes = total
	})

	out, err := os.Create(dest + ".partial")
	if err != nil {
		fail(err)
		return
	}

	var written int64
	buf := make([]byte, 256*1024)
	lastUpdate := time.Now()
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				out.Close()
				fail(err)
				return
			}
			written += int64(n)
			if total > 0 && time.Since(lastUpdate) > time.Second {
				lastUpdate = time.Now()
				progress := float64(written) / float64(total) * 100
				update(func(s *DownloadStatus) { s.Progress = progress })
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			fail(readErr)
			return
		}
	}
	if err := out.Close(); err != nil {
		fail(err)
		return
	}
	if err := os.Rename(dest+".partial", dest); err != nil {
		fail(err)
		return
	}

	update(func(s *DownloadStatus) {
		s.State = StateCompleted
		s.Progress = 100
		s.SizeBytes = written
	})
}

func (d *Direct) Get(ctx context.Context, id string) (*DownloadStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.downloads[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (d *Direct) Delete(ctx context.Context, id string, deleteFiles bool) error {
	d.mu.Lock()
	s, ok := d.downloads[id]
	delete(d.downloads, id)
	d.mu.Unlock()

	if ok && deleteFiles && s.DownloadPath != "" {
		if err := os.Remove(s.DownloadPath); err != nil && !os.IsNotExist(err) {
			return err
		}
		_ = os.Remove(s.DownloadPath + ".partial")
	}
	return nil
}

func fileNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return fmt.Sprintf("download-%x", sha1.Sum([]byte(raw)))[:16]
	}
	return path.Base(u.Path)
}
