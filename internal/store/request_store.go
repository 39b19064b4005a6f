package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/audiarr/audiarr/internal/models"
)

const requestColumns = `id, user_id, work_id, type, status, progress, error_message,
	search_attempts, download_attempts, import_attempts, parent_request_id,
	created_at, updated_at, completed_at, deleted_at, deleted_by`

func scanRequest(row interface{ Scan(...any) error }) (*models.Request, error) {
	var r models.Request
	var errMsg sql.NullString
	var parentID, deletedBy sql.NullInt64
	var completedAt, deletedAt sql.NullTime
	err := row.Scan(&r.ID, &r.UserID, &r.WorkID, &r.Type, &r.Status, &r.Progress, &errMsg,
		&r.SearchAttempts, &r.DownloadAttempts, &r.ImportAttempts, &parentID,
		&r.CreatedAt, &r.UpdatedAt, &completedAt, &deletedAt, &deletedBy)
	if err != nil {
		return nil, err
	}
	r.ErrorMessage = errMsg.String
	if parentID.Valid {
		r.ParentRequestID = &parentID.Int64
	}
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		r.DeletedAt = &t
	}
	if deletedBy.Valid {
		r.DeletedBy = &deletedBy.Int64
	}
	return &r, nil
}

// CreateRequest inserts a new request and returns it.
func (s *Store) CreateRequest(userID, workID int64, reqType models.RequestType, status models.RequestStatus, parentRequestID *int64) (*models.Request, error) {
	now := time.Now()
	res, err := s.db.Exec(`INSERT INTO requests (user_id, work_id, type, status, parent_request_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, workID, reqType, status, parentRequestID, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetRequest(id)
}

// GetRequest fetches a request by id, soft-deleted rows included.
func (s *Store) GetRequest(id int64) (*models.Request, error) {
	row := s.db.QueryRow(`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("request %d not found", id)
	}
	return req, err
}

// FindActiveRequest returns the existing non-terminal, non-deleted request
// for a work+type pair, if any. Duplicate creation races are reconciled by
// reusing this row instead of inserting a second one.
func (s *Store) FindActiveRequest(workID int64, reqType models.RequestType) (*models.Request, bool, error) {
	row := s.db.QueryRow(`SELECT `+requestColumns+` FROM requests
		WHERE work_id = ? AND type = ? AND deleted_at IS NULL
		AND status NOT IN (?, ?)
		ORDER BY created_at ASC LIMIT 1`,
		workID, reqType, models.StatusAvailable, models.StatusCancelled)
	req, err := scanRequest(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return req, true, nil
}

// ListRequests returns all non-deleted requests, newest first.
func (s *Store) ListRequests() ([]*models.Request, error) {
	rows, err := s.db.Query(`SELECT ` + requestColumns + ` FROM requests
		WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListRequestsByStatus returns non-deleted requests in the given statuses.
func (s *Store) ListRequestsByStatus(statuses ...models.RequestStatus) ([]*models.Request, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]any, 0, len(statuses))
	for i, st := range statuses {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, st)
	}
	rows, err := s.db.Query(`SELECT `+requestColumns+` FROM requests
		WHERE deleted_at IS NULL AND status IN (`+placeholders+`)
		ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]*models.Request, error) {
	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// UpdateRequestStatus sets the status and error message of a request.
func (s *Store) UpdateRequestStatus(id int64, status models.RequestStatus, errorMessage string) error {
	_, err := s.db.Exec(`UPDATE requests SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errorMessage, time.Now(), id)
	return err
}

// UpdateRequestProgress sets the download progress percentage.
func (s *Store) UpdateRequestProgress(id int64, progress int) error {
	_, err := s.db.Exec(`UPDATE requests SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, time.Now(), id)
	return err
}

// IncrementAttempts bumps one of the per-stage retry counters. Column is
// restricted to the known counter names.
func (s *Store) IncrementAttempts(id int64, counter string) error {
	switch counter {
	case "search_attempts", "download_attempts", "import_attempts":
	default:
		return fmt.Errorf("unknown attempt counter: %s", counter)
	}
	_, err := s.db.Exec(`UPDATE requests SET `+counter+` = `+counter+` + 1, updated_at = ? WHERE id = ?`,
		time.Now(), id)
	return err
}

// MarkRequestAvailable records a confirmed library match. A fresh success
// erases prior failure history: error message and retry counters reset.
func (s *Store) MarkRequestAvailable(id int64) error {
	now := time.Now()
	_, err := s.db.Exec(`UPDATE requests SET status = ?, progress = 100, error_message = '',
		search_attempts = 0, download_attempts = 0, import_attempts = 0,
		completed_at = ?, updated_at = ? WHERE id = ?`,
		models.StatusAvailable, now, now, id)
	return err
}

// ClearRequestError empties the error message, used when a retry is accepted.
func (s *Store) ClearRequestError(id int64) error {
	_, err := s.db.Exec(`UPDATE requests SET error_message = '', updated_at = ? WHERE id = ?`,
		time.Now(), id)
	return err
}

// SoftDeleteRequest marks a request deleted without removing the row, so
// historical counts survive.
func (s *Store) SoftDeleteRequest(id, deletedBy int64) error {
	_, err := s.db.Exec(`UPDATE requests SET deleted_at = ?, deleted_by = ?, updated_at = ? WHERE id = ?`,
		time.Now(), deletedBy, time.Now(), id)
	return err
}

// HardDeleteRequest removes the row entirely. Aggregate counts are
// preserved separately in the stats table by the caller.
func (s *Store) HardDeleteRequest(id int64) error {
	_, err := s.db.Exec(`DELETE FROM requests WHERE id = ?`, id)
	return err
}

// RegressAvailabilityForWork walks back requests that claimed availability
// through a library item that disappeared. Files may still exist, so the
// request returns to downloaded rather than being deleted.
func (s *Store) RegressAvailabilityForWork(workID int64) error {
	_, err := s.db.Exec(`UPDATE requests SET status = ?, updated_at = ?
		WHERE work_id = ? AND deleted_at IS NULL AND status = ?`,
		models.StatusDownloaded, time.Now(), workID, models.StatusAvailable)
	return err
}
