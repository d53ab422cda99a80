// Package sync pulls corporation records out of ESI and merges them into
// the store, one domain per run. Fetching and committing are separate
// phases: a run first scans pages newest-first into memory, then commits
// them oldest-first, one transaction per page, advancing the domain cursor
// with each page. The cursor therefore always marks a prefix of history
// that is fully present locally, and a crash costs at most the uncommitted
// remainder of one run.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// Source is the slice of the ESI client the engine consumes.
type Source interface {
	WalletJournal(ctx context.Context, page int) ([]model.JournalEntry, int, error)
	Contracts(ctx context.Context, page int) ([]model.Contract, int, error)
	ContractItems(ctx context.Context, contractID int64) ([]model.ContractItem, error)
	IndustryJobs(ctx context.Context, page int) ([]model.IndustryJob, int, error)
	MarketOrders(ctx context.Context, page int) ([]model.MarketOrder, int, error)
	MarketOrderHistory(ctx context.Context, page int) ([]model.MarketOrder, int, error)
}

// phase is the lifecycle position of one domain run. Only the committing
// phase writes to the store.
type phase int

const (
	phaseIdle phase = iota
	phaseFetching
	phaseCommitting
	phaseDone
)

func (p phase) String() string {
	switch p {
	case phaseFetching:
		return "fetching"
	case phaseCommitting:
		return "committing"
	case phaseDone:
		return "done"
	default:
		return "idle"
	}
}

// Engine syncs one corporation's ESI domains into the store.
type Engine struct {
	src      Source
	store    *store.Store
	refTypes []string // journal ref types classified as donations
	log      zerolog.Logger
}

// New builds an engine. refTypes lists the journal ref types the wallet
// run projects into donations.
func New(src Source, st *store.Store, refTypes []string, log zerolog.Logger) *Engine {
	return &Engine{src: src, store: st, refTypes: refTypes, log: log}
}

func (e *Engine) newRun(domain string) model.SyncRun {
	return model.SyncRun{
		ID:        uuid.NewString(),
		Domain:    domain,
		StartedAt: time.Now().UTC(),
		Status:    model.RunOK,
	}
}

// finish completes the audit row, records it and logs the outcome. The
// run's error, if any, is returned unchanged so callers surface it.
func (e *Engine) finish(ctx context.Context, run model.SyncRun, counts store.Counts, pages int, runErr error) (model.SyncRun, error) {
	run.FinishedAt = time.Now().UTC()
	run.Pages = pages
	run.Inserted = counts.Inserted
	run.Updated = counts.Updated
	run.Skipped = counts.Skipped
	if runErr != nil {
		run.Status = model.RunFailed
		run.Error = runErr.Error()
	}

	if err := e.store.RecordRun(ctx, run); err != nil {
		e.log.Warn().Err(err).Str("domain", run.Domain).Msg("failed to record sync run")
	}

	evt := e.log.Info()
	if runErr != nil {
		evt = e.log.Error().Err(runErr)
	}
	evt.Str("domain", run.Domain).
		Int("pages", pages).
		Int("inserted", counts.Inserted).
		Int("updated", counts.Updated).
		Int("skipped", counts.Skipped).
		Dur("took", run.FinishedAt.Sub(run.StartedAt)).
		Msg("sync finished")

	return run, runErr
}

func (e *Engine) enterPhase(domain string, p phase) {
	e.log.Debug().Str("domain", domain).Stringer("phase", p).Msg("sync phase")
}
