// Package indexer queries a Prowlarr-compatible aggregator for release
// candidates. Results are normalized into model candidates before the
// ranking engine ever sees them.
package indexer

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
)

// audiobookCategories are the Newznab category codes searched by default.
const audiobookCategories = "3030"

// SearchOptions narrows a search beyond the bare query string.
type SearchOptions struct {
	IndexerIDs []int64
	MaxResults int
}

// Searcher is the search surface the pipeline consumes.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]models.Candidate, error)
}

// Client talks to a Prowlarr-compatible search API.
type Client struct {
	http   *resty.Client
	apiKey string
}

// New builds a search client for the given base URL and API key.
func New(baseURL, apiKey string) *Client {
	http := resty.New()
	http.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	http.SetTimeout(60 * time.Second)
	http.SetRetryCount(1)
	http.SetRetryWaitTime(2 * time.Second)
	http.SetHeader("X-Api-Key", apiKey)
	return &Client{http: http, apiKey: apiKey}
}

// searchResult mirrors the fields of a Prowlarr /api/v1/search item that we
// care about.
type searchResult struct {
	IndexerID    int64    `json:"indexerId"`
	Indexer      string   `json:"indexer"`
	Title        string   `json:"title"`
	DownloadURL  string   `json:"downloadUrl"`
	MagnetURL    string   `json:"magnetUrl"`
	InfoURL      string   `json:"infoUrl"`
	Size         int64    `json:"size"`
	Seeders      *int     `json:"seeders"`
	Leechers     *int     `json:"leechers"`
	PublishDate  string   `json:"publishDate"`
	Protocol     string   `json:"protocol"`
	IndexerFlags []string `json:"indexerFlags"`
}

// Search runs one query and returns normalized candidates.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]models.Candidate, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		SetQueryParam("categories", audiobookCategories).
		SetQueryParam("type", "search")
	if opts.MaxResults > 0 {
		req.SetQueryParam("limit", strconv.Itoa(opts.MaxResults))
	}
	for _, id := range opts.IndexerIDs {
		req.QueryParam.Add("indexerIds", strconv.FormatInt(id, 10))
	}

	var results []searchResult
	resp, err := req.SetResult(&results).Get("/api/v1/search")
	if err != nil {
		return nil, fmt.Errorf("indexer search: %w", err)
	}
	if resp.StatusCode() == 401 {
		return nil, fmt.Errorf("indexer search: invalid API key")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("indexer search: status %d", resp.StatusCode())
	}

	candidates := make([]models.Candidate, 0, len(results))
	for _, r := range results {
		cand := models.Candidate{
			IndexerID:   r.IndexerID,
			IndexerName: r.Indexer,
			Title:       r.Title,
			DownloadURL: r.DownloadURL,
			InfoURL:     r.InfoURL,
			SizeBytes:   r.Size,
			Flags:       r.IndexerFlags,
			Protocol:    models.Protocol(r.Protocol),
		}
		if cand.DownloadURL == "" {
			cand.DownloadURL = r.MagnetURL
		}
		if cand.DownloadURL == "" {
			continue
		}
		if r.Seeders != nil {
			cand.Seeders = *r.Seeders
		}
		if r.Leechers != nil {
			cand.Leechers = *r.Leechers
		}
		if r.PublishDate != "" {
			if t, err := time.Parse(time.RFC3339, r.PublishDate); err == nil {
				cand.PublishDate = t
			}
		}
		if opts.MaxResults > 0 && len(candidates) >= opts.MaxResults {
			break
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// Test checks connectivity and the API key against the system status
// endpoint.
func (c *Client) Test(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/api/v1/system/status")
	if err != nil {
		return fmt.Errorf("indexer: %w", err)
	}
	if resp.StatusCode() == 401 {
		return fmt.Errorf("indexer: invalid API key")
	}
	if resp.IsError() {
		return fmt.Errorf("indexer: status %d", resp.StatusCode())
	}
	return nil
}
