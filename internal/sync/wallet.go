package sync

import (
	"context"
	"fmt"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// SyncWallet pulls new wallet journal entries and derives donations from
// them. The journal is append-only upstream, so the scan stops early at the
// first page that reaches the cursor: everything at or below it is already
// stored.
func (e *Engine) SyncWallet(ctx context.Context) (model.SyncRun, error) {
	run := e.newRun(store.DomainWallet)

	cursor, haveCursor, err := e.store.Cursor(ctx, store.DomainWallet)
	if err != nil {
		return e.finish(ctx, run, store.Counts{}, 0, err)
	}

	// Fetch phase: newest-first until exhaustion or the cursor boundary.
	// Nothing commits until the scan is complete, otherwise a mid-scan
	// failure could leave the cursor above a hole in history.
	e.enterPhase(store.DomainWallet, phaseFetching)
	var pages [][]model.JournalEntry
	for page := 1; ; page++ {
		entries, total, err := e.src.WalletJournal(ctx, page)
		if err != nil {
			return e.finish(ctx, run, store.Counts{}, 0, err)
		}
		if len(entries) == 0 {
			break
		}

		boundary := false
		if haveCursor {
			fresh := entries[:0:0]
			for _, en := range entries {
				if en.ID <= cursor {
					boundary = true
					continue
				}
				fresh = append(fresh, en)
			}
			entries = fresh
		}
		if len(entries) > 0 {
			pages = append(pages, entries)
		}
		if boundary || page >= total {
			break
		}
	}

	// Commit phase: oldest page first, so the cursor stays a watermark of
	// complete history even if interrupted between pages.
	e.enterPhase(store.DomainWallet, phaseCommitting)
	var counts store.Counts
	for i := len(pages) - 1; i >= 0; i-- {
		entries := pages[i]
		c, err := e.store.SaveJournalPage(ctx, entries, maxJournalID(entries))
		if err != nil {
			return e.finish(ctx, run, counts, len(pages)-1-i, err)
		}
		counts.Add(c)
	}

	if counts.Inserted > 0 || !haveCursor {
		derived, err := e.store.DeriveDonations(ctx, e.refTypes)
		if err != nil {
			return e.finish(ctx, run, counts, len(pages), fmt.Errorf("deriving donations: %w", err))
		}
		if derived > 0 {
			e.log.Info().Int("donations", derived).Msg("derived new donations")
		}
	}

	e.enterPhase(store.DomainWallet, phaseDone)
	return e.finish(ctx, run, counts, len(pages), nil)
}

func maxJournalID(entries []model.JournalEntry) int64 {
	var max int64
	for _, e := range entries {
		if e.ID > max {
			max = e.ID
		}
	}
	return max
}
