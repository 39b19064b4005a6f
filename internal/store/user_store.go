package store

import (
	"database/sql"
	"fmt"

	"github.com/audiarr/audiarr/internal/models"
)

// CreateUser inserts a user and returns its id.
func (s *Store) CreateUser(username, role string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO users (username, role) VALUES (?, ?)`, username, role)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetUser fetches a user by id.
func (s *Store) GetUser(id int64) (*models.User, error) {
	var u models.User
	var autoApprove sql.NullBool
	err := s.db.QueryRow(`SELECT id, username, role, auto_approve_requests, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.Role, &autoApprove, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if autoApprove.Valid {
		u.AutoApproveRequests = &autoApprove.Bool
	}
	return &u, nil
}

// SetUserAutoApprove sets or clears the per-user auto-approve override.
func (s *Store) SetUserAutoApprove(id int64, autoApprove *bool) error {
	_, err := s.db.Exec(`UPDATE users SET auto_approve_requests = ? WHERE id = ?`, autoApprove, id)
	return err
}

// CountUsers returns the number of users.
func (s *Store) CountUsers() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
