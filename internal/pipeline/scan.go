package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/mediaserver"
	"github.com/audiarr/audiarr/internal/models"
	"github.com/audiarr/audiarr/internal/notify"
)

// ScanLibrary reconciles internal state with the external media library:
// records what the server has, marks matched requests available, removes
// records the server no longer reports, and walks back availability that
// rested on them. A scan reporting zero items aborts before the stale
// sweep; an empty result is far more likely a server hiccup than a
// genuinely emptied library, and a hiccup must not mass-delete records.
func (p *Processor) ScanLibrary(ctx context.Context) error {
	if p.library == nil {
		logger.Debug().Msg("no media server configured, scan skipped")
		return nil
	}

	scanStart := time.Now()
	items, err := p.library.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("listing library items: %w", err)
	}
	logger.Info().Int("items", len(items)).Msg("library scan fetched inventory")

	if len(items) == 0 {
		logger.Warn().Msg("scan returned zero items, skipping stale sweep")
		return p.orphanSweep()
	}

	for i := range items {
		if _, err := p.store.UpsertLibraryItem(&items[i], scanStart); err != nil {
			return fmt.Errorf("recording library item %s: %w", items[i].ExternalID, err)
		}
	}

	if err := p.matchSweep(ctx, items); err != nil {
		return err
	}
	if err := p.staleSweep(scanStart); err != nil {
		return err
	}
	return p.orphanSweep()
}

// matchSweep walks active requests looking for works the scan just saw.
func (p *Processor) matchSweep(ctx context.Context, items []models.LibraryItem) error {
	active, err := p.store.ListRequestsByStatus(
		models.StatusPending, models.StatusAwaitingApproval, models.StatusSearching,
		models.StatusDownloading, models.StatusProcessing, models.StatusDownloaded,
		models.StatusAwaitingSearch, models.StatusAwaitingImport,
		models.StatusFailed, models.StatusWarn,
	)
	if err != nil {
		return err
	}

	for _, req := range active {
		work, err := p.workFor(req)
		if err != nil {
			logger.Error().Int64("request", req.ID).Err(err).Msg("loading work during scan")
			continue
		}
		item := mediaserver.MatchInventory(items, mediaserver.MatchQuery{
			ASIN:     work.ASIN,
			Title:    work.Title,
			Author:   work.Author,
			Narrator: work.Narrator,
		})
		if item == nil {
			continue
		}

		itemID, err := p.store.UpsertLibraryItem(item, time.Now())
		if err != nil {
			logger.Error().Int64("request", req.ID).Err(err).Msg("recording matched item")
			continue
		}
		if err := p.store.LinkWorkToLibraryItem(work.ID, &itemID); err != nil {
			logger.Error().Int64("request", req.ID).Err(err).Msg("linking work")
			continue
		}
		// A fresh success erases prior failure history.
		if err := p.store.MarkRequestAvailable(req.ID); err != nil {
			logger.Error().Int64("request", req.ID).Err(err).Msg("marking available")
			continue
		}
		if err := p.store.IncrementStat("requests_completed"); err != nil {
			logger.Warn().Err(err).Msg("bumping requests_completed")
		}
		req.Status = models.StatusAvailable
		p.broadcast(req, 100, "matched in library")
		p.notifier.Send(ctx, notify.EventRequestAvailable, req.ID, work.Title, "")
		logger.Info().Int64("request", req.ID).Str("title", work.Title).Msg("scan matched request")
	}
	return nil
}

// staleSweep removes library records the scan did not see and walks back
// any availability that depended on them.
func (p *Processor) staleSweep(scanStart time.Time) error {
	stale, err := p.store.StaleLibraryItems(scanStart)
	if err != nil {
		return err
	}
	for _, item := range stale {
		works, err := p.store.WorksLinkedToLibraryItem(item.ID)
		if err != nil {
			return err
		}
		for _, work := range works {
			if err := p.store.LinkWorkToLibraryItem(work.ID, nil); err != nil {
				return err
			}
			if err := p.store.RegressAvailabilityForWork(work.ID); err != nil {
				return err
			}
			logger.Info().Int64("work", work.ID).Str("title", work.Title).
				Msg("library item gone, availability walked back")
		}
		if err := p.store.DeleteLibraryItem(item.ID); err != nil {
			return err
		}
	}
	if len(stale) > 0 {
		logger.Info().Int("removed", len(stale)).Msg("stale library records removed")
	}
	return nil
}

// orphanSweep clears work links that point at a library item row that no
// longer exists. Runs even when the stale sweep was skipped; the two
// passes are independent.
func (p *Processor) orphanSweep() error {
	orphans, err := p.store.WorksWithDanglingLibraryItem()
	if err != nil {
		return err
	}
	for _, work := range orphans {
		if err := p.store.LinkWorkToLibraryItem(work.ID, nil); err != nil {
			return err
		}
		if err := p.store.RegressAvailabilityForWork(work.ID); err != nil {
			return err
		}
		logger.Info().Int64("work", work.ID).Msg("orphaned library link cleared")
	}
	return nil
}
