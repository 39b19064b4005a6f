package models

import "time"

// Work is a canonical catalog entry, the thing requests point at.
// Availability is derived: a work is available when a request for it
// completed successfully and/or a library item match was found.
type Work struct {
	ID              int64     `json:"id"`
	ASIN            string    `json:"asin"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Narrator        string    `json:"narrator,omitempty"`
	Description     string    `json:"description,omitempty"`
	CoverURL        string    `json:"cover_url,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	ReleaseDate     string    `json:"release_date,omitempty"`
	LibraryItemID   *int64    `json:"library_item_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LibraryItem is a denormalized record of an item seen in the external
// media library (Audiobookshelf or Plex), used for availability matching.
type LibraryItem struct {
	ID            int64     `json:"id"`
	ExternalID    string    `json:"external_id"` // opaque key from the media server
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Narrator      string    `json:"narrator,omitempty"`
	ASIN          string    `json:"asin,omitempty"`
	ISBN          string    `json:"isbn,omitempty"`
	CoverURL      string    `json:"cover_url,omitempty"`
	LastScannedAt time.Time `json:"last_scanned_at"`
}
