// Package metadata looks up audiobook details by ASIN from the Audible
// catalog API. Lookups are cached; the catalog is effectively immutable
// for our purposes and the API is rate limited.
package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/audiarr/audiarr/internal/models"
)

// Book is the normalized metadata for one audiobook.
type Book struct {
	ASIN            string    `json:"asin"`
	Title           string    `json:"title"`
	Subtitle        string    `json:"subtitle,omitempty"`
	Author          string    `json:"author"`
	Narrator        string    `json:"narrator,omitempty"`
	Description     string    `json:"description,omitempty"`
	CoverURL        string    `json:"cover_url,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	ReleaseDate     time.Time `json:"release_date,omitempty"`
}

// Lookup is the metadata surface the pipeline consumes.
type Lookup interface {
	GetBook(ctx context.Context, asin string) (*Book, error)
}

// regionDomains maps a marketplace region code to its API host.
var regionDomains = map[string]string{
	"us": "api.audible.com",
	"uk": "api.audible.co.uk",
	"de": "api.audible.de",
	"fr": "api.audible.fr",
	"ca": "api.audible.ca",
	"au": "api.audible.com.au",
	"it": "api.audible.it",
	"es": "api.audible.es",
	"jp": "api.audible.co.jp",
	"in": "api.audible.in",
}

// Client fetches book metadata from the Audible catalog.
type Client struct {
	http  *resty.Client
	cache *gocache.Cache
}

// New builds a metadata client for the given region (empty means US).
func New(region string) *Client {
	domain, ok := regionDomains[strings.ToLower(region)]
	if !ok {
		domain = regionDomains["us"]
	}
	http := resty.New()
	http.SetBaseURL("https://" + domain)
	http.SetTimeout(30 * time.Second)
	http.SetRetryCount(1)
	http.SetRetryWaitTime(2 * time.Second)
	return &Client{
		http:  http,
		cache: gocache.New(24*time.Hour, time.Hour),
	}
}

// setBaseURL repoints the client, used by tests.
func (c *Client) setBaseURL(u string) {
	c.http.SetBaseURL(u)
}

type catalogResponse struct {
	Product struct {
		ASIN    string `json:"asin"`
		Title   string `json:"title"`
		Subtitle string `json:"subtitle"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Narrators []struct {
			Name string `json:"name"`
		} `json:"narrators"`
		PublisherSummary string `json:"publisher_summary"`
		RuntimeLengthMin int    `json:"runtime_length_min"`
		ReleaseDate      string `json:"release_date"`
		ProductImages    map[string]string `json:"product_images"`
	} `json:"product"`
}

// GetBook returns the metadata for one ASIN, from cache when possible.
func (c *Client) GetBook(ctx context.Context, asin string) (*Book, error) {
	if cached, ok := c.cache.Get(asin); ok {
		return cached.(*Book), nil
	}

	var out catalogResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("response_groups", "contributors,media,product_attrs,product_desc").
		SetQueryParam("image_sizes", "500").
		SetResult(&out).
		Get("/1.0/catalog/products/" + asin)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup for %s: %w", asin, err)
	}
	if resp.StatusCode() == 404 {
		return nil, fmt.Errorf("metadata lookup for %s: not found", asin)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("metadata lookup for %s: status %d", asin, resp.StatusCode())
	}

	p := out.Product
	if p.ASIN == "" {
		return nil, fmt.Errorf("metadata lookup for %s: empty product", asin)
	}

	book := &Book{
		ASIN:            p.ASIN,
		Title:           p.Title,
		Subtitle:        p.Subtitle,
		Description:     p.PublisherSummary,
		DurationMinutes: p.RuntimeLengthMin,
		Author:          joinNames(len(p.Authors), func(i int) string { return p.Authors[i].Name }),
		Narrator:        joinNames(len(p.Narrators), func(i int) string { return p.Narrators[i].Name }),
		CoverURL:        p.ProductImages["500"],
	}
	if p.ReleaseDate != "" {
		if t, err := time.Parse("2006-01-02", p.ReleaseDate); err == nil {
			book.ReleaseDate = t
		}
	}

	c.cache.Set(asin, book, gocache.DefaultExpiration)
	return book, nil
}

// RankingTarget converts book metadata into the ranking engine's shape.
// Defined here so callers that only have an ASIN do one hop.
func (b *Book) RankingTarget() (title, author string, durationMinutes int) {
	return b.Title, b.Author, b.DurationMinutes
}

// Work converts book metadata into a catalog work row.
func (b *Book) Work() *models.Work {
	w := &models.Work{
		ASIN:            b.ASIN,
		Title:           b.Title,
		Author:          b.Author,
		Narrator:        b.Narrator,
		Description:     b.Description,
		CoverURL:        b.CoverURL,
		DurationMinutes: b.DurationMinutes,
	}
	if !b.ReleaseDate.IsZero() {
		w.ReleaseDate = b.ReleaseDate.Format("2006-01-02")
	}
	return w
}

func joinNames(n int, name func(int) string) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if s := name(i); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
