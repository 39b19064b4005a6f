package models

import (
	"strings"
	"time"
)

// Candidate is one indexer search result competing to fulfill a request.
type Candidate struct {
	IndexerID   int64     `json:"indexer_id"`
	IndexerName string    `json:"indexer_name"`
	Title       string    `json:"title"`
	DownloadURL string    `json:"download_url"`
	InfoURL     string    `json:"info_url,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	Seeders     int       `json:"seeders"`
	Leechers    int       `json:"leechers"`
	PublishDate time.Time `json:"publish_date"`
	// Format is an optional explicit container hint from the indexer
	// (e.g. "M4B"). When empty the ranking engine infers it from the title.
	Format string `json:"format,omitempty"`
	// HasChapters is an optional hint that an M4B carries chapter marks.
	HasChapters *bool `json:"has_chapters,omitempty"`
	// Flags are indexer release tags such as "freeleech".
	Flags []string `json:"flags,omitempty"`
	// Protocol as reported by the indexer; empty means detect from the URL.
	Protocol Protocol `json:"protocol,omitempty"`
}

// DetectProtocol derives the transport family from the candidate itself.
// Callers never pick an adapter directly; NZB-shaped results go to usenet,
// everything else to torrent.
func (c *Candidate) DetectProtocol() Protocol {
	if c.Protocol != "" {
		return c.Protocol
	}
	u := strings.ToLower(c.DownloadURL)
	switch {
	case strings.HasPrefix(u, "magnet:"):
		return ProtocolTorrent
	case strings.Contains(u, ".nzb") || strings.Contains(u, "/nzb/") || strings.Contains(u, "t=get&"):
		return ProtocolUsenet
	case strings.Contains(strings.ToLower(c.Title), ".nzb"):
		return ProtocolUsenet
	}
	return ProtocolTorrent
}
