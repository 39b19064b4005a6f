package models

import "time"

// User is the minimal subject for request ownership and the approval
// gate. Authentication lives outside this service.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"` // "admin" or "user"
	// AutoApproveRequests overrides the global approval default when set.
	AutoApproveRequests *bool     `json:"auto_approve_requests,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == "admin" }
