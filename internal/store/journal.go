package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// SaveJournalPage commits one page of wallet journal entries and advances
// the wallet cursor, all in a single transaction. Journal entries are
// immutable: rows already present are skipped, never rewritten.
func (s *Store) SaveJournalPage(ctx context.Context, entries []model.JournalEntry, cursor int64) (Counts, error) {
	var counts Counts
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			var one int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM wallet_journal WHERE esi_id = ?`, e.ID).Scan(&one)
			switch {
			case err == nil:
				counts.Skipped++
				continue
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("checking journal entry %d: %w", e.ID, err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO wallet_journal (
					esi_id, date, ref_type, amount, balance,
					description, reason, first_party_id, second_party_id,
					context_id, context_id_type, division, raw_json
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				e.ID, timeToDB(e.Date), e.RefType, e.Amount.String(), e.Balance.String(),
				e.Description, e.Reason, e.FirstPartyID, e.SecondPartyID,
				e.ContextID, e.ContextIDType, e.Division, string(e.Raw))
			if err != nil {
				return fmt.Errorf("inserting journal entry %d: %w", e.ID, err)
			}
			counts.Inserted++
		}
		return advanceCursor(ctx, tx, DomainWallet, cursor)
	})
	return counts, err
}

// ContractContextEntries returns all journal entries carrying contract
// context, oldest first. The flow deriver re-examines them every run until
// each one's contract shows up and settles.
func (s *Store) ContractContextEntries(ctx context.Context) ([]model.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+journalColumns+`
		FROM wallet_journal
		WHERE context_id_type = ? AND context_id != 0
		ORDER BY date ASC, esi_id ASC`,
		model.ContextTypeContract)
	if err != nil {
		return nil, fmt.Errorf("querying contract-context entries: %w", err)
	}
	defer rows.Close()
	return scanJournalEntries(rows)
}

// JournalEntry returns one journal row by its ESI id, or nil when absent.
func (s *Store) JournalEntry(ctx context.Context, esiID int64) (*model.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+journalColumns+`
		FROM wallet_journal WHERE esi_id = ?`, esiID)
	e, err := scanJournalEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading journal entry %d: %w", esiID, err)
	}
	return &e, nil
}

// DeriveDonations projects journal entries whose ref_type is in refTypes
// into the donations table, keeping the donor (first party), amount, date
// and the stated reason or description. Existing donations are untouched.
// Returns how many new donations appeared.
func (s *Store) DeriveDonations(ctx context.Context, refTypes []string) (int, error) {
	if len(refTypes) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(refTypes)), ",")
	args := make([]any, 0, len(refTypes))
	for _, rt := range refTypes {
		args = append(args, rt)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO donations (journal_id, character_id, amount, date, description)
		SELECT esi_id, first_party_id, amount, date,
		       CASE WHEN reason != '' THEN reason ELSE description END
		FROM wallet_journal
		WHERE ref_type IN (`+placeholders+`)
		  AND esi_id NOT IN (SELECT journal_id FROM donations)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("deriving donations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting derived donations: %w", err)
	}
	return int(n), nil
}

const journalColumns = `esi_id, date, ref_type, amount, balance,
	description, reason, first_party_id, second_party_id,
	context_id, context_id_type, division, raw_json`

func scanJournalEntry(scan func(...any) error) (model.JournalEntry, error) {
	var e model.JournalEntry
	var date, amount, balance, raw string
	err := scan(&e.ID, &date, &e.RefType, &amount, &balance,
		&e.Description, &e.Reason, &e.FirstPartyID, &e.SecondPartyID,
		&e.ContextID, &e.ContextIDType, &e.Division, &raw)
	if err != nil {
		return model.JournalEntry{}, err
	}
	e.Date = timeFromDB(date)
	e.Amount = decFromDB(amount)
	e.Balance = decFromDB(balance)
	e.Raw = []byte(raw)
	return e, nil
}

func scanJournalEntries(rows *sql.Rows) ([]model.JournalEntry, error) {
	var out []model.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}
	return out, nil
}
