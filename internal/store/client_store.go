package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/audiarr/audiarr/internal/models"
)

const clientColumns = `id, name, type, protocol, host, port, use_tls, username, password,
	api_key, category, enabled, path_mapping_enabled, remote_path, local_path, created_at`

func scanClient(row interface{ Scan(...any) error }) (*models.DownloadClientConfig, error) {
	var c models.DownloadClientConfig
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Protocol, &c.Host, &c.Port, &c.UseTLS,
		&c.Username, &c.Password, &c.APIKey, &c.Category, &c.Enabled,
		&c.PathMappingEnabled, &c.RemotePath, &c.LocalPath, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClientConfig inserts a download client row. The one-enabled-client
// per-protocol-family invariant is enforced here, before the manager ever
// sees the configuration.
func (s *Store) CreateClientConfig(c *models.DownloadClientConfig) (int64, error) {
	if c.Enabled {
		if err := s.checkProtocolFree(c.Protocol, 0); err != nil {
			return 0, err
		}
	}
	res, err := s.db.Exec(`INSERT INTO download_clients
		(name, type, protocol, host, port, use_tls, username, password, api_key, category,
		 enabled, path_mapping_enabled, remote_path, local_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Type, c.Protocol, c.Host, c.Port, c.UseTLS, c.Username, c.Password,
		c.APIKey, c.Category, c.Enabled, c.PathMappingEnabled, c.RemotePath, c.LocalPath, time.Now())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateClientConfig rewrites a download client row, applying the same
// protocol-family check as creation.
func (s *Store) UpdateClientConfig(c *models.DownloadClientConfig) error {
	if c.Enabled {
		if err := s.checkProtocolFree(c.Protocol, c.ID); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`UPDATE download_clients SET
		name = ?, type = ?, protocol = ?, host = ?, port = ?, use_tls = ?, username = ?,
		password = ?, api_key = ?, category = ?, enabled = ?, path_mapping_enabled = ?,
		remote_path = ?, local_path = ? WHERE id = ?`,
		c.Name, c.Type, c.Protocol, c.Host, c.Port, c.UseTLS, c.Username, c.Password,
		c.APIKey, c.Category, c.Enabled, c.PathMappingEnabled, c.RemotePath, c.LocalPath, c.ID)
	return err
}

func (s *Store) checkProtocolFree(protocol models.Protocol, excludeID int64) error {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM download_clients
		WHERE protocol = ? AND enabled = 1 AND id != ?`, protocol, excludeID).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("an enabled %s client already exists; disable it first", protocol)
	}
	return nil
}

// DeleteClientConfig removes a download client row.
func (s *Store) DeleteClientConfig(id int64) error {
	_, err := s.db.Exec(`DELETE FROM download_clients WHERE id = ?`, id)
	return err
}

// GetClientConfig fetches a download client row by id.
func (s *Store) GetClientConfig(id int64) (*models.DownloadClientConfig, error) {
	row := s.db.QueryRow(`SELECT `+clientColumns+` FROM download_clients WHERE id = ?`, id)
	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("download client %d not found", id)
	}
	return c, err
}

// ListClientConfigs returns all configured download clients.
func (s *Store) ListClientConfigs() ([]*models.DownloadClientConfig, error) {
	rows, err := s.db.Query(`SELECT ` + clientColumns + ` FROM download_clients ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.DownloadClientConfig
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// EnabledClientConfigs returns only the enabled clients, the set the
// manager is built from.
func (s *Store) EnabledClientConfigs() ([]*models.DownloadClientConfig, error) {
	rows, err := s.db.Query(`SELECT ` + clientColumns + ` FROM download_clients WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.DownloadClientConfig
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}
