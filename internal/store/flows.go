package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// UpsertFlow writes one derived flow, keyed by (source, source_id).
// Re-deriving the same raw record overwrites the row with identical values,
// which is what makes the flow deriver safe to run any number of times.
func (s *Store) UpsertFlow(ctx context.Context, f model.Flow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO member_flows (
			source, source_id, character_id, direction, value_isk, occurred_at, note
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, source_id) DO UPDATE SET
			character_id = excluded.character_id,
			direction = excluded.direction,
			value_isk = excluded.value_isk,
			occurred_at = excluded.occurred_at,
			note = excluded.note`,
		string(f.Source), f.SourceID, f.CharacterID, string(f.Direction),
		f.Value.String(), timeToDB(f.OccurredAt), f.Note)
	if err != nil {
		return fmt.Errorf("upserting flow %s/%d: %w", f.Source, f.SourceID, err)
	}
	return nil
}

// HasFlow reports whether a flow derived from the given record exists.
func (s *Store) HasFlow(ctx context.Context, source model.FlowSource, sourceID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM member_flows WHERE source = ? AND source_id = ?`,
		string(source), sourceID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking flow %s/%d: %w", source, sourceID, err)
	}
	return true, nil
}

// RecentFlows returns derived flows newest first. Empty direction or source
// means no filter on that field.
func (s *Store) RecentFlows(ctx context.Context, limit int, direction model.FlowDirection, source model.FlowSource) ([]model.Flow, error) {
	query := `
		SELECT source, source_id, character_id, direction, value_isk, occurred_at, note
		FROM member_flows`
	var args []any
	var conds []string
	if direction != "" {
		conds = append(conds, "direction = ?")
		args = append(args, string(direction))
	}
	if source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(source))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += `
		ORDER BY occurred_at DESC, source_id DESC
		LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	defer rows.Close()

	var out []model.Flow
	for rows.Next() {
		var f model.Flow
		var src, dir, value, occurred string
		if err := rows.Scan(&src, &f.SourceID, &f.CharacterID, &dir, &value, &occurred, &f.Note); err != nil {
			return nil, fmt.Errorf("scanning flow: %w", err)
		}
		f.Source = model.FlowSource(src)
		f.Direction = model.FlowDirection(dir)
		f.Value = decFromDB(value)
		f.OccurredAt = timeFromDB(occurred)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating flows: %w", err)
	}
	return out, nil
}

// FlowTotals sums all flows per direction. Values are stored as decimal
// text, so summation happens here rather than in SQL, keeping ISK exact.
func (s *Store) FlowTotals(ctx context.Context) (in, out decimal.Decimal, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT direction, value_isk FROM member_flows`)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("querying flow totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dir, value string
		if err := rows.Scan(&dir, &value); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("scanning flow total: %w", err)
		}
		switch model.FlowDirection(dir) {
		case model.FlowIn:
			in = in.Add(decFromDB(value))
		case model.FlowOut:
			out = out.Add(decFromDB(value))
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("iterating flow totals: %w", err)
	}
	return in, out, nil
}

// CharacterNet is one member's net contribution (in minus out).
type CharacterNet struct {
	CharacterID int64
	Net         decimal.Decimal
}

// NetByCharacter aggregates every member's net flow value, highest first.
func (s *Store) NetByCharacter(ctx context.Context) ([]CharacterNet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT character_id, direction, value_isk FROM member_flows WHERE character_id != 0`)
	if err != nil {
		return nil, fmt.Errorf("querying member net values: %w", err)
	}
	defer rows.Close()

	nets := make(map[int64]decimal.Decimal)
	for rows.Next() {
		var charID int64
		var dir, value string
		if err := rows.Scan(&charID, &dir, &value); err != nil {
			return nil, fmt.Errorf("scanning member net value: %w", err)
		}
		f := model.Flow{Direction: model.FlowDirection(dir), Value: decFromDB(value)}
		nets[charID] = nets[charID].Add(f.Signed())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member net values: %w", err)
	}

	out := make([]CharacterNet, 0, len(nets))
	for charID, net := range nets {
		out = append(out, CharacterNet{CharacterID: charID, Net: net})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Net.Equal(out[j].Net) {
			return out[i].Net.GreaterThan(out[j].Net)
		}
		return out[i].CharacterID < out[j].CharacterID
	})
	return out, nil
}
