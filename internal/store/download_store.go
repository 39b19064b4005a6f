package store

import (
	"database/sql"
	"time"

	"github.com/audiarr/audiarr/internal/models"
)

const downloadColumns = `id, request_id, indexer_id, indexer_name, download_client, protocol,
	client_download_id, title, download_url, size_bytes, seeders, leechers,
	status, download_path, selected, created_at, updated_at`

func scanDownload(row interface{ Scan(...any) error }) (*models.DownloadHistory, error) {
	var d models.DownloadHistory
	var clientID sql.NullString
	err := row.Scan(&d.ID, &d.RequestID, &d.IndexerID, &d.IndexerName, &d.DownloadClient,
		&d.Protocol, &clientID, &d.Title, &d.DownloadURL, &d.SizeBytes, &d.Seeders,
		&d.Leechers, &d.Status, &d.DownloadPath, &d.Selected, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		d.ClientDownloadID = &clientID.String
	}
	return &d, nil
}

// CreateDownloadHistory records one download attempt. When selected is
// true, any previously selected row for the request loses the flag first,
// keeping the one-selected-row invariant.
func (s *Store) CreateDownloadHistory(d *models.DownloadHistory) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if d.Selected {
		if _, err := tx.Exec(`UPDATE download_history SET selected = 0, updated_at = ? WHERE request_id = ?`,
			time.Now(), d.RequestID); err != nil {
			return 0, err
		}
	}

	now := time.Now()
	res, err := tx.Exec(`INSERT INTO download_history
		(request_id, indexer_id, indexer_name, download_client, protocol, client_download_id,
		 title, download_url, size_bytes, seeders, leechers, status, download_path, selected,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RequestID, d.IndexerID, d.IndexerName, d.DownloadClient, d.Protocol, d.ClientDownloadID,
		d.Title, d.DownloadURL, d.SizeBytes, d.Seeders, d.Leechers, d.Status, d.DownloadPath,
		d.Selected, now, now)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetSelectedDownload returns the chosen candidate for a request, the row
// the job processors act on. Absence is not an error.
func (s *Store) GetSelectedDownload(requestID int64) (*models.DownloadHistory, bool, error) {
	row := s.db.QueryRow(`SELECT `+downloadColumns+` FROM download_history
		WHERE request_id = ? AND selected = 1`, requestID)
	d, err := scanDownload(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// ListDownloadsForRequest returns all attempts for a request, newest first.
func (s *Store) ListDownloadsForRequest(requestID int64) ([]*models.DownloadHistory, error) {
	rows, err := s.db.Query(`SELECT `+downloadColumns+` FROM download_history
		WHERE request_id = ? ORDER BY created_at DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []*models.DownloadHistory
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// ListDownloadsByStatus returns selected downloads in the given status,
// used by the seeding cleanup sweep.
func (s *Store) ListDownloadsByStatus(status string) ([]*models.DownloadHistory, error) {
	rows, err := s.db.Query(`SELECT `+downloadColumns+` FROM download_history
		WHERE status = ? AND selected = 1 ORDER BY created_at ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []*models.DownloadHistory
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// UpdateDownloadStatus sets the status of a download history row.
func (s *Store) UpdateDownloadStatus(id int64, status string) error {
	_, err := s.db.Exec(`UPDATE download_history SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	return err
}

// UpdateDownloadPath captures the path reported by the live client. It is
// written once and kept as a fallback for when the client forgets the id.
func (s *Store) UpdateDownloadPath(id int64, path string) error {
	_, err := s.db.Exec(`UPDATE download_history SET download_path = ?, updated_at = ? WHERE id = ?`,
		path, time.Now(), id)
	return err
}
