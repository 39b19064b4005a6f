package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/audiarr/audiarr/internal/indexer"
	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/ranking"
)

// Search runs the automatic search for one request: query the indexers,
// rank the results, and grab the best candidate when it clears the
// auto-select threshold. Empty or below-threshold results park the
// request in awaiting_search for the retry sweep.
func (p *Processor) Search(ctx context.Context, requestID int64) error {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return err
	}
	switch req.Status {
	case models.StatusPending, models.StatusAwaitingSearch:
		if err := p.setStatus(req, models.StatusSearching, ""); err != nil {
			logger.Debug().Int64("request", req.ID).Err(err).Msg("search skipped, request moved on")
			return nil
		}
	case models.StatusSearching:
		// A crashed earlier run left it here; carry on.
	default:
		logger.Debug().Int64("request", req.ID).Str("status", string(req.Status)).Msg("search skipped")
		return nil
	}

	if err := p.store.IncrementAttempts(req.ID, "search_attempts"); err != nil {
		return err
	}

	ranked, _, err := p.rankedCandidates(ctx, req)
	if err != nil {
		p.fail(req, "search", err)
		return nil
	}

	best, ok := bestAboveThreshold(ranked, p.cfg.Search.AutoThreshold)
	if !ok {
		msg := "no results found"
		if len(ranked) > 0 {
			msg = fmt.Sprintf("no candidate scored above %.0f (best %.1f)",
				p.cfg.Search.AutoThreshold, ranked[0].Total)
		}
		if err := p.setStatus(req, models.StatusAwaitingSearch, msg); err != nil {
			return err
		}
		return nil
	}

	return p.Grab(ctx, req, best)
}

// InteractiveSearch returns the full ranked list for a request so the
// user can pick. No threshold is applied: the human makes the final call.
func (p *Processor) InteractiveSearch(ctx context.Context, requestID int64) ([]ranking.RankedCandidate, error) {
	req, err := p.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	ranked, _, err := p.rankedCandidates(ctx, req)
	return ranked, err
}

func (p *Processor) rankedCandidates(ctx context.Context, req *models.Request) ([]ranking.RankedCandidate, *models.Work, error) {
	work, err := p.workFor(req)
	if err != nil {
		return nil, nil, err
	}

	query := searchQuery(work, req.Type)
	candidates, err := p.searcher.Search(ctx, query, indexer.SearchOptions{
		MaxResults: p.cfg.Search.MaxResults,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("indexer search: %w", err)
	}
	logger.Info().Int64("request", req.ID).Str("query", query).
		Int("candidates", len(candidates)).Msg("search complete")

	ranked := ranking.Rank(candidates, ranking.Target{
		Title:           work.Title,
		Author:          work.Author,
		DurationMinutes: work.DurationMinutes,
	}, p.rankingOptions())
	return ranked, work, nil
}

// rankingOptions resolves indexer priorities and flag weights from the
// settings store. Both are optional JSON blobs; malformed entries are
// ignored rather than failing the search.
func (p *Processor) rankingOptions() *ranking.Options {
	opts := &ranking.Options{}
	if raw, ok, err := p.store.GetSetting("indexer_priorities"); err == nil && ok {
		opts.IndexerPriorities = parsePriorities(raw)
	}
	if raw, ok, err := p.store.GetSetting("flag_weights"); err == nil && ok {
		opts.FlagWeights = parseFlagWeights(raw)
	}
	if len(opts.IndexerPriorities) == 0 && len(opts.FlagWeights) == 0 {
		return nil
	}
	return opts
}

func searchQuery(work *models.Work, reqType models.RequestType) string {
	parts := []string{work.Title}
	if work.Author != "" {
		parts = append(parts, work.Author)
	}
	if reqType == models.TypeEbook {
		parts = append(parts, "epub")
	}
	return strings.Join(parts, " ")
}

// bestAboveThreshold picks the top candidate at or above the threshold.
// The list arrives sorted best-first, so only the head matters.
func bestAboveThreshold(ranked []ranking.RankedCandidate, threshold float64) (ranking.RankedCandidate, bool) {
	if len(ranked) == 0 || ranked[0].Total < threshold {
		return ranking.RankedCandidate{}, false
	}
	return ranked[0], true
}
