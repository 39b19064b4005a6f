package pipeline

import (
	"context"
	"fmt"

	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/notify"
)

// CreateInput describes the work a new request is for. An ASIN alone is
// enough when a metadata lookup is configured; otherwise title and author
// are required.
type CreateInput struct {
	ASIN   string
	Title  string
	Author string
	Type   models.RequestType
}

// CreateRequest resolves the work, applies the approval gate, and inserts
// the request. An existing active request for the same work+type is
// reused instead of creating a duplicate; the second return reports
// whether a new row was created. When the ebook companion feature is on,
// an audiobook request brings a linked ebook request with it.
func (p *Processor) CreateRequest(ctx context.Context, user *models.User, input CreateInput) (*models.Request, bool, error) {
	if input.Type == "" {
		input.Type = models.TypeAudiobook
	}

	work, err := p.resolveWork(ctx, input)
	if err != nil {
		return nil, false, err
	}

	if existing, found, err := p.store.FindActiveRequest(work.ID, input.Type); err != nil {
		return nil, false, err
	} else if found {
		logger.Info().Int64("request", existing.ID).Int64("work", work.ID).
			Msg("reusing existing active request")
		return existing, false, nil
	}

	status := InitialStatus(user, p.cfg)
	var userID int64
	if user != nil {
		userID = user.ID
	}
	req, err := p.store.CreateRequest(userID, work.ID, input.Type, status, nil)
	if err != nil {
		return nil, false, err
	}
	logger.Info().Int64("request", req.ID).Str("title", work.Title).
		Str("status", string(status)).Msg("request created")
	if status == models.StatusPending {
		p.notifier.Send(ctx, notify.EventRequestApproved, req.ID, work.Title, "")
	}

	if input.Type == models.TypeAudiobook && p.cfg.EbookAutoRequest() {
		p.createEbookCompanion(ctx, user, req, work)
	}
	return req, true, nil
}

// createEbookCompanion inserts the linked ebook request. Failures are
// logged, never propagated; the audiobook request must not fail because
// its companion could not be created.
func (p *Processor) createEbookCompanion(ctx context.Context, user *models.User, parent *models.Request, work *models.Work) {
	if _, found, err := p.store.FindActiveRequest(work.ID, models.TypeEbook); err != nil || found {
		return
	}
	status := InitialStatus(user, p.cfg)
	var userID int64
	if user != nil {
		userID = user.ID
	}
	companion, err := p.store.CreateRequest(userID, work.ID, models.TypeEbook, status, &parent.ID)
	if err != nil {
		logger.Error().Int64("parent", parent.ID).Err(err).Msg("creating ebook companion request")
		return
	}
	logger.Info().Int64("request", companion.ID).Int64("parent", parent.ID).
		Msg("ebook companion request created")
}

// resolveWork finds or creates the catalog entry for the input, enriching
// it from the metadata service when an ASIN is given.
func (p *Processor) resolveWork(ctx context.Context, input CreateInput) (*models.Work, error) {
	if input.ASIN != "" && p.metadata != nil {
		book, err := p.metadata.GetBook(ctx, input.ASIN)
		if err != nil {
			logger.Warn().Str("asin", input.ASIN).Err(err).Msg("metadata lookup failed, using provided fields")
		} else {
			return p.store.GetOrCreateWork(book.Work())
		}
	}
	if input.Title == "" {
		return nil, fmt.Errorf("a title is required when no metadata is available")
	}
	return p.store.GetOrCreateWork(&models.Work{
		ASIN:   input.ASIN,
		Title:  input.Title,
		Author: input.Author,
	})
}
