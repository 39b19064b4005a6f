package mediaserver

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/audiarr/audiarr/internal/models"
)

// Plex reads a Plex server's music/audiobook sections. Plex has no
// first-class audiobook type; audiobooks live in artist-type sections, so
// albums are treated as titles and artists as authors.
type Plex struct {
	http *resty.Client
}

func newPlex(baseURL, token string) *Plex {
	http := newServerHTTPClient(baseURL)
	http.SetHeader("X-Plex-Token", token)
	http.SetHeader("Accept", "application/json")
	return &Plex{http: http}
}

type plexSectionsResponse struct {
	MediaContainer struct {
		Directory []struct {
			Key   string `json:"key"`
			Type  string `json:"type"`
			Title string `json:"title"`
		} `json:"Directory"`
	} `json:"MediaContainer"`
}

type plexItemsResponse struct {
	MediaContainer struct {
		Metadata []struct {
			RatingKey        string `json:"ratingKey"`
			Title            string `json:"title"`
			ParentTitle      string `json:"parentTitle"`
			GrandparentTitle string `json:"grandparentTitle"`
			Thumb            string `json:"thumb"`
			Guid             string `json:"guid"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

func (p *Plex) Test(ctx context.Context) error {
	resp, err := p.http.R().SetContext(ctx).Get("/identity")
	if err != nil {
		return fmt.Errorf("plex: %w", err)
	}
	if resp.StatusCode() == 401 {
		return fmt.Errorf("plex: invalid token")
	}
	if resp.IsError() {
		return fmt.Errorf("plex: status %d", resp.StatusCode())
	}
	return nil
}

// ListItems returns the albums of every artist-type section.
func (p *Plex) ListItems(ctx context.Context) ([]models.LibraryItem, error) {
	var sections plexSectionsResponse
	resp, err := p.http.R().SetContext(ctx).SetResult(&sections).Get("/library/sections")
	if err != nil {
		return nil, fmt.Errorf("plex sections: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("plex sections: status %d", resp.StatusCode())
	}

	var items []models.LibraryItem
	for _, dir := range sections.MediaContainer.Directory {
		if dir.Type != "artist" {
			continue
		}
		var out plexItemsResponse
		resp, err := p.http.R().
			SetContext(ctx).
			SetQueryParam("type", "9"). // albums
			SetResult(&out).
			Get("/library/sections/" + dir.Key + "/all")
		if err != nil {
			return nil, fmt.Errorf("plex items for %s: %w", dir.Title, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("plex items for %s: status %d", dir.Title, resp.StatusCode())
		}
		for _, m := range out.MediaContainer.Metadata {
			items = append(items, models.LibraryItem{
				ExternalID: m.RatingKey,
				Title:      m.Title,
				Author:     m.ParentTitle,
				CoverURL:   m.Thumb,
			})
		}
	}
	return items, nil
}

func (p *Plex) Match(ctx context.Context, q MatchQuery) (*models.LibraryItem, error) {
	items, err := p.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return MatchInventory(items, q), nil
}
