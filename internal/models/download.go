package models

import "time"

// Protocol is the transport family a download travels over. It decides
// which download client adapter a candidate is routed to.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
	ProtocolDirect  Protocol = "direct"
)

// Download statuses as stored on DownloadHistory rows.
const (
	DownloadStatusGrabbed     = "grabbed"
	DownloadStatusDownloading = "downloading"
	DownloadStatusCompleted   = "completed"
	DownloadStatusImported    = "imported"
	DownloadStatusSeeding     = "seeding" // completed, kept in client for seeding
	DownloadStatusFailed      = "failed"
	DownloadStatusRemoved     = "removed"
)

// DownloadHistory is one download attempt tied to a Request. At most one
// row per request carries Selected=true: the candidate the pipeline is
// actually acting on.
type DownloadHistory struct {
	ID               int64     `json:"id"`
	RequestID        int64     `json:"request_id"`
	IndexerID        int64     `json:"indexer_id"`
	IndexerName      string    `json:"indexer_name"`
	DownloadClient   string    `json:"download_client"` // adapter identity, e.g. "qbittorrent"
	Protocol         Protocol  `json:"protocol"`
	ClientDownloadID *string   `json:"client_download_id,omitempty"` // torrent hash / NZB id; nil for direct HTTP
	Title            string    `json:"title"`
	DownloadURL      string    `json:"download_url"`
	SizeBytes        int64     `json:"size_bytes"`
	Seeders          int       `json:"seeders"`
	Leechers         int       `json:"leechers"`
	Status           string    `json:"status"`
	// DownloadPath is captured once from the live client and kept as a
	// durability fallback for when the client can no longer be queried.
	DownloadPath string    `json:"download_path,omitempty"`
	Selected     bool      `json:"selected"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
