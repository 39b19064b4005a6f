package mediaserver

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
)

// Audiobookshelf reads an Audiobookshelf server through its REST API.
type Audiobookshelf struct {
	http *resty.Client
}

func newAudiobookshelf(baseURL, token string) *Audiobookshelf {
	http := newServerHTTPClient(baseURL)
	http.SetAuthToken(token)
	return &Audiobookshelf{http: http}
}

type absLibrariesResponse struct {
	Libraries []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		MediaType string `json:"mediaType"`
	} `json:"libraries"`
}

type absItemsResponse struct {
	Results []struct {
		ID    string `json:"id"`
		Media struct {
			Metadata struct {
				Title        string `json:"title"`
				AuthorName   string `json:"authorName"`
				NarratorName string `json:"narratorName"`
				ASIN         string `json:"asin"`
				ISBN         string `json:"isbn"`
			} `json:"metadata"`
			CoverPath string `json:"coverPath"`
		} `json:"media"`
	} `json:"results"`
	Total int `json:"total"`
	Page  int `json:"page"`
}

func (a *Audiobookshelf) Test(ctx context.Context) error {
	resp, err := a.http.R().SetContext(ctx).Get("/api/libraries")
	if err != nil {
		return fmt.Errorf("audiobookshelf: %w", err)
	}
	if resp.StatusCode() == 401 {
		return fmt.Errorf("audiobookshelf: invalid token")
	}
	if resp.IsError() {
		return fmt.Errorf("audiobookshelf: status %d", resp.StatusCode())
	}
	return nil
}

// ListItems walks every book library, paging through its items.
func (a *Audiobookshelf) ListItems(ctx context.Context) ([]models.LibraryItem, error) {
	var libs absLibrariesResponse
	resp, err := a.http.R().SetContext(ctx).SetResult(&libs).Get("/api/libraries")
	if err != nil {
		return nil, fmt.Errorf("audiobookshelf libraries: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("audiobookshelf libraries: status %d", resp.StatusCode())
	}

	var items []models.LibraryItem
	for _, lib := range libs.Libraries {
		if lib.MediaType != "" && lib.MediaType != "book" {
			continue
		}
		for page := 0; ; page++ {
			var out absItemsResponse
			resp, err := a.http.R().
				SetContext(ctx).
				SetQueryParam("limit", "100").
				SetQueryParam("page", fmt.Sprintf("%d", page)).
				SetResult(&out).
				Get("/api/libraries/" + lib.ID + "/items")
			if err != nil {
				return nil, fmt.Errorf("audiobookshelf items for %s: %w", lib.Name, err)
			}
			if resp.IsError() {
				return nil, fmt.Errorf("audiobookshelf items for %s: status %d", lib.Name, resp.StatusCode())
			}
			for _, r := range out.Results {
				items = append(items, models.LibraryItem{
					ExternalID: r.ID,
					Title:      r.Media.Metadata.Title,
					Author:     r.Media.Metadata.AuthorName,
					Narrator:   r.Media.Metadata.NarratorName,
					ASIN:       r.Media.Metadata.ASIN,
					ISBN:       r.Media.Metadata.ISBN,
				})
			}
			if len(out.Results) < 100 {
				break
			}
		}
	}
	return items, nil
}

func (a *Audiobookshelf) Match(ctx context.Context, q MatchQuery) (*models.LibraryItem, error) {
	items, err := a.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return MatchInventory(items, q), nil
}
