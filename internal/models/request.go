// This file defines the core data structures (models) for our application.

package models

import "time"

// RequestType distinguishes the two media forms a user can ask for.
type RequestType string

const (
	TypeAudiobook RequestType = "audiobook"
	TypeEbook     RequestType = "ebook"
)

// RequestStatus is the lifecycle state of a request. Transitions between
// statuses are validated by the pipeline state machine; nothing mutates a
// request status without consulting it.
type RequestStatus string

const (
	StatusPending          RequestStatus = "pending"
	StatusAwaitingApproval RequestStatus = "awaiting_approval"
	StatusSearching        RequestStatus = "searching"
	StatusDownloading      RequestStatus = "downloading"
	StatusProcessing       RequestStatus = "processing"
	StatusDownloaded       RequestStatus = "downloaded"
	StatusAvailable        RequestStatus = "available"
	StatusAwaitingSearch   RequestStatus = "awaiting_search"
	StatusAwaitingImport   RequestStatus = "awaiting_import"
	StatusFailed           RequestStatus = "failed"
	StatusWarn             RequestStatus = "warn"
	StatusCancelled        RequestStatus = "cancelled"
)

// Request is one user's ask for one work in one form.
type Request struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	WorkID           int64         `json:"work_id"`
	Type             RequestType   `json:"type"`
	Status           RequestStatus `json:"status"`
	Progress         int           `json:"progress"` // 0-100
	ErrorMessage     string        `json:"error_message,omitempty"`
	SearchAttempts   int           `json:"search_attempts"`
	DownloadAttempts int           `json:"download_attempts"`
	ImportAttempts   int           `json:"import_attempts"`
	ParentRequestID  *int64        `json:"parent_request_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	DeletedAt        *time.Time    `json:"deleted_at,omitempty"`
	DeletedBy        *int64        `json:"deleted_by,omitempty"`
}

// Active reports whether the request is still in flight: not terminal and
// not soft-deleted.
func (r *Request) Active() bool {
	if r.DeletedAt != nil {
		return false
	}
	switch r.Status {
	case StatusAvailable, StatusCancelled:
		return false
	}
	return true
}
