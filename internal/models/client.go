package models

import "time"

// ClientType identifies a concrete download client backend.
type ClientType string

const (
	ClientQBittorrent  ClientType = "qbittorrent"
	ClientTransmission ClientType = "transmission"
	ClientDeluge       ClientType = "deluge"
	ClientSABnzbd      ClientType = "sabnzbd"
	ClientNZBGet       ClientType = "nzbget"
)

// DownloadClientConfig is one configured backend. At most one enabled
// client per protocol family; enforced when rows are written, relied upon
// by the client manager at dispatch time.
type DownloadClientConfig struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Type     ClientType `json:"type"`
	Protocol Protocol   `json:"protocol"`
	Host     string     `json:"host"`
	Port     int        `json:"port"`
	UseTLS   bool       `json:"use_tls"`
	Username string     `json:"username,omitempty"`
	Password string     `json:"password,omitempty"`
	APIKey   string     `json:"api_key,omitempty"`
	Category string     `json:"category"`
	Enabled  bool       `json:"enabled"`

	// Remote path mapping between the client's storage namespace and ours.
	PathMappingEnabled bool   `json:"path_mapping_enabled"`
	RemotePath         string `json:"remote_path,omitempty"`
	LocalPath          string `json:"local_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
