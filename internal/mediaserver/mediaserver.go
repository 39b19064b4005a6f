// Package mediaserver reads the external media library so availability
// can be matched against it. Two backends are supported: Audiobookshelf
// and Plex. The scan sweep lists every item; request matching compares
// against that list by ASIN first and title/author second.
package mediaserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
)

// Server types accepted by config.
const (
	TypeAudiobookshelf = "audiobookshelf"
	TypePlex           = "plex"
)

// MatchQuery identifies the work we want to find in the library.
type MatchQuery struct {
	ASIN     string
	Title    string
	Author   string
	Narrator string
}

// Client is the library surface the pipeline consumes.
type Client interface {
	// ListItems returns every audiobook the server currently has.
	ListItems(ctx context.Context) ([]models.LibraryItem, error)
	// Match finds the library item for a work, or nil when absent.
	Match(ctx context.Context, q MatchQuery) (*models.LibraryItem, error)
	// Test verifies connectivity and the token.
	Test(ctx context.Context) error
}

// New builds the client for the configured server type.
func New(serverType, baseURL, token string) (Client, error) {
	switch strings.ToLower(serverType) {
	case TypeAudiobookshelf:
		return newAudiobookshelf(baseURL, token), nil
	case TypePlex:
		return newPlex(baseURL, token), nil
	}
	return nil, fmt.Errorf("unknown media server type %q", serverType)
}

func newServerHTTPClient(baseURL string) *resty.Client {
	http := resty.New()
	http.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	http.SetTimeout(60 * time.Second)
	http.SetRetryCount(1)
	http.SetRetryWaitTime(2 * time.Second)
	return http
}

// MatchInventory applies the shared matching rule over a listed library:
// exact ASIN wins, then normalized title + author containment.
func MatchInventory(items []models.LibraryItem, q MatchQuery) *models.LibraryItem {
	if q.ASIN != "" {
		for i := range items {
			if items[i].ASIN != "" && strings.EqualFold(items[i].ASIN, q.ASIN) {
				return &items[i]
			}
		}
	}

	title := normalize(q.Title)
	author := normalize(q.Author)
	if title == "" {
		return nil
	}
	for i := range items {
		itemTitle := normalize(items[i].Title)
		if itemTitle != title && !strings.Contains(itemTitle, title) {
			continue
		}
		if author != "" {
			itemAuthor := normalize(items[i].Author)
			if itemAuthor != "" && !strings.Contains(itemAuthor, author) && !strings.Contains(author, itemAuthor) {
				continue
			}
		}
		return &items[i]
	}
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
