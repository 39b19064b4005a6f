package pipeline

import (
	"testing"

	"github.com/audiarr/audiarr/internal/config"
	"github.com/audiarr/audiarr/internal/models"
)

func TestCanTransitionSuccessPath(t *testing.T) {
	path := []models.RequestStatus{
		models.StatusPending,
		models.StatusSearching,
		models.StatusDownloading,
		models.StatusProcessing,
		models.StatusAvailable,
	}
	for i := 0; i < len(path)-1; i++ {
		if !CanTransition(path[i], path[i+1]) {
			t.Errorf("%s -> %s should be legal", path[i], path[i+1])
		}
	}
}

func TestCanTransitionRejectsIllegalMoves(t *testing.T) {
	cases := []struct{ from, to models.RequestStatus }{
		{models.StatusPending, models.StatusProcessing},
		{models.StatusAvailable, models.StatusSearching},
		{models.StatusCancelled, models.StatusPending},
		{models.StatusSearching, models.StatusProcessing},
		{models.StatusDownloaded, models.StatusSearching},
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransitionSelfIsNoop(t *testing.T) {
	if !CanTransition(models.StatusSearching, models.StatusSearching) {
		t.Errorf("same-status transition should be allowed as a no-op")
	}
}

func TestRetryable(t *testing.T) {
	retryable := []models.RequestStatus{
		models.StatusFailed, models.StatusWarn,
		models.StatusAwaitingSearch, models.StatusAwaitingImport,
	}
	for _, st := range retryable {
		if !Retryable(st) {
			t.Errorf("%s should be retryable", st)
		}
	}
	notRetryable := []models.RequestStatus{
		models.StatusPending, models.StatusSearching, models.StatusDownloading,
		models.StatusProcessing, models.StatusDownloaded, models.StatusAvailable,
		models.StatusCancelled, models.StatusAwaitingApproval,
	}
	for _, st := range notRetryable {
		if Retryable(st) {
			t.Errorf("%s should not be retryable", st)
		}
	}
}

func TestCancellable(t *testing.T) {
	if Cancellable(models.StatusAvailable) || Cancellable(models.StatusCancelled) {
		t.Errorf("terminal statuses must not be cancellable")
	}
	if !Cancellable(models.StatusDownloading) || !Cancellable(models.StatusAwaitingApproval) {
		t.Errorf("active statuses must be cancellable")
	}
}

func TestInitialStatusDefaultTrue(t *testing.T) {
	// Non-admin, no per-user flag, global default unset in an old config:
	// the compatibility rule is auto-approve.
	cfg := config.ForTest(t.TempDir(), t.TempDir())
	user := &models.User{ID: 1, Username: "alice", Role: "user"}
	if got := InitialStatus(user, cfg); got != models.StatusPending {
		t.Errorf("default-true rule broken, got %s", got)
	}
}

func TestInitialStatusUserFlagWins(t *testing.T) {
	cfg := config.ForTest(t.TempDir(), t.TempDir())
	no := false
	user := &models.User{ID: 1, Username: "bob", Role: "user", AutoApproveRequests: &no}
	if got := InitialStatus(user, cfg); got != models.StatusAwaitingApproval {
		t.Errorf("explicit user flag should gate the request, got %s", got)
	}

	yes := true
	cfg.Approval.AutoApproveDefault = false
	user.AutoApproveRequests = &yes
	if got := InitialStatus(user, cfg); got != models.StatusPending {
		t.Errorf("explicit user flag should override the global default, got %s", got)
	}
}

func TestInitialStatusAdminAlwaysApproved(t *testing.T) {
	cfg := config.ForTest(t.TempDir(), t.TempDir())
	cfg.Approval.AutoApproveDefault = false
	admin := &models.User{ID: 1, Username: "root", Role: "admin"}
	if got := InitialStatus(admin, cfg); got != models.StatusPending {
		t.Errorf("admins are auto-approved, got %s", got)
	}
}
