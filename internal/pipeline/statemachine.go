// Package pipeline drives requests from "nothing downloaded" to
// "available in the library": search, grab, monitor, import, scan-match,
// cleanup. Every status mutation is validated against the state machine
// in this file first.
package pipeline

import (
	"fmt"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/models"
)

// ErrInvalidTransition is wrapped by every transition rejection.
var ErrInvalidTransition = fmt.Errorf("invalid status transition")

// transitions lists the legal moves. Anything absent is rejected.
var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending: {
		models.StatusSearching, models.StatusCancelled, models.StatusFailed,
	},
	models.StatusAwaitingApproval: {
		models.StatusPending, models.StatusSearching, models.StatusCancelled,
	},
	models.StatusSearching: {
		models.StatusDownloading, models.StatusAwaitingSearch,
		models.StatusFailed, models.StatusCancelled,
	},
	models.StatusDownloading: {
		models.StatusProcessing, models.StatusFailed, models.StatusWarn,
		models.StatusCancelled, models.StatusAvailable,
	},
	models.StatusProcessing: {
		models.StatusAvailable, models.StatusDownloaded, models.StatusAwaitingImport,
		models.StatusFailed, models.StatusWarn, models.StatusCancelled,
	},
	models.StatusDownloaded: {
		models.StatusAvailable, models.StatusProcessing, models.StatusCancelled,
	},
	models.StatusAwaitingSearch: {
		models.StatusPending, models.StatusSearching, models.StatusAvailable,
		models.StatusCancelled,
	},
	models.StatusAwaitingImport: {
		models.StatusProcessing, models.StatusAvailable, models.StatusCancelled,
	},
	models.StatusFailed: {
		models.StatusPending, models.StatusSearching, models.StatusProcessing,
		models.StatusAvailable, models.StatusCancelled,
	},
	models.StatusWarn: {
		models.StatusPending, models.StatusSearching, models.StatusProcessing,
		models.StatusAvailable, models.StatusCancelled,
	},
	// Terminal: cancelled requests never move again; available moves only
	// through the dedicated regression path, not through CanTransition.
	models.StatusCancelled: {},
	models.StatusAvailable: {},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to models.RequestStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a descriptive error for an illegal move.
func CheckTransition(from, to models.RequestStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// retryableStatuses are the only states a user or admin retry is accepted
// from. Everything else rejects a retry naming the current status.
var retryableStatuses = map[models.RequestStatus]bool{
	models.StatusFailed:         true,
	models.StatusWarn:           true,
	models.StatusAwaitingSearch: true,
	models.StatusAwaitingImport: true,
}

// Retryable reports whether a retry action is accepted from the status.
func Retryable(status models.RequestStatus) bool {
	return retryableStatuses[status]
}

// Cancellable reports whether a cancel action is accepted from the
// status. Cancel is legal from any non-terminal state.
func Cancellable(status models.RequestStatus) bool {
	switch status {
	case models.StatusAvailable, models.StatusCancelled:
		return false
	}
	return true
}

// InitialStatus applies the approval gate to a new request. Admins are
// auto-approved; other users follow their own auto-approve flag when set,
// else the global default (true when unconfigured).
func InitialStatus(user *models.User, cfg *config.Config) models.RequestStatus {
	approved := cfg.Approval.AutoApproveDefault
	if user != nil {
		if user.IsAdmin() {
			approved = true
		} else if user.AutoApproveRequests != nil {
			approved = *user.AutoApproveRequests
		}
	}
	if approved {
		return models.StatusPending
	}
	return models.StatusAwaitingApproval
}
