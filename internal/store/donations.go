package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// ListDonations returns the most recent donations, newest first.
func (s *Store) ListDonations(ctx context.Context, limit int) ([]model.Donation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_id, character_id, amount, date, description, processed, notes
		FROM donations
		ORDER BY date DESC, journal_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing donations: %w", err)
	}
	defer rows.Close()
	return scanDonations(rows)
}

// AllDonations returns every donation, oldest first, for flow derivation.
func (s *Store) AllDonations(ctx context.Context) ([]model.Donation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT journal_id, character_id, amount, date, description, processed, notes
		FROM donations
		ORDER BY date ASC, journal_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying donations: %w", err)
	}
	defer rows.Close()
	return scanDonations(rows)
}

// MarkDonationProcessed flags a donation as acknowledged by an operator.
func (s *Store) MarkDonationProcessed(ctx context.Context, journalID int64, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE donations SET processed = 1, notes = ? WHERE journal_id = ?`,
		notes, journalID)
	if err != nil {
		return fmt.Errorf("marking donation %d processed: %w", journalID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("marking donation processed: donation %d not found", journalID)
	}
	return nil
}

func scanDonations(rows *sql.Rows) ([]model.Donation, error) {
	var out []model.Donation
	for rows.Next() {
		var d model.Donation
		var amount, date string
		var processed int
		if err := rows.Scan(&d.JournalID, &d.CharacterID, &amount, &date,
			&d.Description, &processed, &d.Notes); err != nil {
			return nil, fmt.Errorf("scanning donation: %w", err)
		}
		d.Amount = decFromDB(amount)
		d.Date = timeFromDB(date)
		d.Processed = processed != 0
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating donations: %w", err)
	}
	return out, nil
}
