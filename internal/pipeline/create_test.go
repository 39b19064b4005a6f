package pipeline

import (
	"context"
	"testing"

	"github.com/audiarr/audiarr/internal/models"
)

func TestCreateRequestAppliesApprovalGate(t *testing.T) {
	env := newTestEnv(t)
	no := false
	user := &models.User{ID: 1, Username: "bob", Role: "user", AutoApproveRequests: &no}

	req, created, err := env.processor.CreateRequest(context.Background(), user, CreateInput{
		Title:  "The Housemaid",
		Author: "Freida McFadden",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if !created {
		t.Fatalf("expected a new request")
	}
	if req.Status != models.StatusAwaitingApproval {
		t.Errorf("status = %s, want awaiting_approval", req.Status)
	}
}

func TestCreateRequestReusesActive(t *testing.T) {
	env := newTestEnv(t)
	user := &models.User{ID: 1, Username: "alice", Role: "user"}
	input := CreateInput{Title: "The Housemaid", Author: "Freida McFadden"}

	first, created, err := env.processor.CreateRequest(context.Background(), user, input)
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}

	second, created, err := env.processor.CreateRequest(context.Background(), user, input)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatalf("duplicate create should reuse the active request")
	}
	if second.ID != first.ID {
		t.Errorf("reused id = %d, want %d", second.ID, first.ID)
	}
}

func TestCreateRequestAfterTerminalCreatesNew(t *testing.T) {
	env := newTestEnv(t)
	user := &models.User{ID: 1, Username: "alice", Role: "user"}
	input := CreateInput{Title: "The Housemaid", Author: "Freida McFadden"}

	first, _, err := env.processor.CreateRequest(context.Background(), user, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.processor.Cancel(first.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	second, created, err := env.processor.CreateRequest(context.Background(), user, input)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !created || second.ID == first.ID {
		t.Errorf("cancelled request must not be reused (created=%v)", created)
	}
}

func TestCreateRequestEbookCompanion(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.SetEbookAutoRequest(true)
	user := &models.User{ID: 1, Username: "alice", Role: "user"}

	req, _, err := env.processor.CreateRequest(context.Background(), user, CreateInput{
		Title:  "The Housemaid",
		Author: "Freida McFadden",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	companion, found, err := env.store.FindActiveRequest(req.WorkID, models.TypeEbook)
	if err != nil {
		t.Fatalf("FindActiveRequest: %v", err)
	}
	if !found {
		t.Fatalf("ebook companion not created")
	}
	if companion.ParentRequestID == nil || *companion.ParentRequestID != req.ID {
		t.Errorf("companion parent = %v, want %d", companion.ParentRequestID, req.ID)
	}
}

func TestCreateRequestLegacyEbookFlag(t *testing.T) {
	env := newTestEnv(t)
	// Legacy flag on, new flag never explicitly set: legacy applies.
	env.cfg.DownloadEbooks = true
	user := &models.User{ID: 1, Username: "alice", Role: "user"}

	req, _, err := env.processor.CreateRequest(context.Background(), user, CreateInput{
		Title:  "The Housemaid",
		Author: "Freida McFadden",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, found, _ := env.store.FindActiveRequest(req.WorkID, models.TypeEbook); !found {
		t.Errorf("legacy download_ebooks flag should trigger the companion")
	}

	// New flag explicitly off wins over the legacy flag.
	env2 := newTestEnv(t)
	env2.cfg.DownloadEbooks = true
	env2.cfg.SetEbookAutoRequest(false)
	req2, _, err := env2.processor.CreateRequest(context.Background(), user, CreateInput{
		Title:  "The Housemaid",
		Author: "Freida McFadden",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, found, _ := env2.store.FindActiveRequest(req2.WorkID, models.TypeEbook); found {
		t.Errorf("explicit ebook.auto_request=false must win over the legacy flag")
	}
}

func TestCreateRequestRequiresTitleWithoutMetadata(t *testing.T) {
	env := newTestEnv(t)
	user := &models.User{ID: 1, Username: "alice", Role: "user"}
	if _, _, err := env.processor.CreateRequest(context.Background(), user, CreateInput{ASIN: "B0NOPE"}); err == nil {
		t.Fatalf("expected error when only an ASIN is given and no lookup is configured")
	}
}
