package store

import (
	"context"
	"fmt"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// RecordRun writes one sync audit row. Audit rows are history: they are
// only ever inserted.
func (s *Store) RecordRun(ctx context.Context, run model.SyncRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, domain, started_at, finished_at,
			pages, inserted, updated, skipped, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Domain, timeToDB(run.StartedAt), timeToDB(run.FinishedAt),
		run.Pages, run.Inserted, run.Updated, run.Skipped, run.Status, run.Error)
	if err != nil {
		return fmt.Errorf("recording sync run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns the latest sync audit rows, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain, started_at, finished_at,
		       pages, inserted, updated, skipped, status, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sync runs: %w", err)
	}
	defer rows.Close()

	var out []model.SyncRun
	for rows.Next() {
		var r model.SyncRun
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Domain, &started, &finished,
			&r.Pages, &r.Inserted, &r.Updated, &r.Skipped, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		r.StartedAt = timeFromDB(started)
		r.FinishedAt = timeFromDB(finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return out, nil
}
