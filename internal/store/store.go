// Package store persists synced ESI records and derived ledger state in a
// single SQLite file. Tables are keyed by external ids, money is stored as
// exact decimal text, and every page of synced records commits in one
// transaction together with its cursor advancement.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Sync cursor domains.
const (
	DomainWallet    = "wallet"
	DomainContracts = "contracts"
	DomainIndustry  = "industry"
	DomainMarket    = "market"
)

// Store wraps the ledger database.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the ledger database at path and brings
// its schema up to date.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// races between statements on the same process.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallet_journal (
		esi_id INTEGER PRIMARY KEY,
		date TEXT NOT NULL,
		ref_type TEXT NOT NULL,
		amount TEXT NOT NULL DEFAULT '0',
		balance TEXT NOT NULL DEFAULT '0',
		description TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		first_party_id INTEGER NOT NULL DEFAULT 0,
		second_party_id INTEGER NOT NULL DEFAULT 0,
		context_id INTEGER NOT NULL DEFAULT 0,
		context_id_type TEXT NOT NULL DEFAULT '',
		division INTEGER NOT NULL DEFAULT 0,
		raw_json TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_ref_type ON wallet_journal(ref_type)`,
	`CREATE INDEX IF NOT EXISTS idx_journal_context ON wallet_journal(context_id_type, context_id)`,

	`CREATE TABLE IF NOT EXISTS donations (
		journal_id INTEGER PRIMARY KEY,
		character_id INTEGER NOT NULL DEFAULT 0,
		amount TEXT NOT NULL DEFAULT '0',
		date TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		processed INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS contracts (
		contract_id INTEGER PRIMARY KEY,
		issuer_id INTEGER NOT NULL DEFAULT 0,
		issuer_corporation_id INTEGER NOT NULL DEFAULT 0,
		assignee_id INTEGER NOT NULL DEFAULT 0,
		acceptor_id INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		for_corporation INTEGER NOT NULL DEFAULT 0,
		availability TEXT NOT NULL DEFAULT '',
		date_issued TEXT NOT NULL DEFAULT '',
		date_expired TEXT NOT NULL DEFAULT '',
		date_accepted TEXT NOT NULL DEFAULT '',
		date_completed TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL DEFAULT '0',
		reward TEXT NOT NULL DEFAULT '0',
		collateral TEXT NOT NULL DEFAULT '0',
		volume TEXT NOT NULL DEFAULT '0',
		start_location_id INTEGER NOT NULL DEFAULT 0,
		end_location_id INTEGER NOT NULL DEFAULT 0,
		appraisal TEXT,
		raw_json TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status)`,

	`CREATE TABLE IF NOT EXISTS contract_items (
		contract_id INTEGER NOT NULL,
		record_id INTEGER NOT NULL,
		type_id INTEGER NOT NULL DEFAULT 0,
		quantity INTEGER NOT NULL DEFAULT 0,
		raw_quantity INTEGER NOT NULL DEFAULT 0,
		is_included INTEGER NOT NULL DEFAULT 0,
		is_singleton INTEGER NOT NULL DEFAULT 0,
		raw_json TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (contract_id, record_id)
	)`,

	`CREATE TABLE IF NOT EXISTS industry_jobs (
		job_id INTEGER PRIMARY KEY,
		installer_id INTEGER NOT NULL DEFAULT 0,
		facility_id INTEGER NOT NULL DEFAULT 0,
		location_id INTEGER NOT NULL DEFAULT 0,
		activity_id INTEGER NOT NULL DEFAULT 0,
		blueprint_id INTEGER NOT NULL DEFAULT 0,
		blueprint_type_id INTEGER NOT NULL DEFAULT 0,
		product_type_id INTEGER NOT NULL DEFAULT 0,
		runs INTEGER NOT NULL DEFAULT 0,
		successful_runs INTEGER NOT NULL DEFAULT 0,
		cost TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		start_date TEXT NOT NULL DEFAULT '',
		end_date TEXT NOT NULL DEFAULT '',
		pause_date TEXT NOT NULL DEFAULT '',
		completed_date TEXT NOT NULL DEFAULT '',
		completed_character_id INTEGER NOT NULL DEFAULT 0,
		output_location_id INTEGER NOT NULL DEFAULT 0,
		raw_json TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS market_orders (
		order_id INTEGER PRIMARY KEY,
		type_id INTEGER NOT NULL DEFAULT 0,
		location_id INTEGER NOT NULL DEFAULT 0,
		region_id INTEGER NOT NULL DEFAULT 0,
		volume_total INTEGER NOT NULL DEFAULT 0,
		volume_remain INTEGER NOT NULL DEFAULT 0,
		min_volume INTEGER NOT NULL DEFAULT 0,
		price TEXT NOT NULL DEFAULT '0',
		escrow TEXT NOT NULL DEFAULT '0',
		is_buy_order INTEGER NOT NULL DEFAULT 0,
		issued_by INTEGER NOT NULL DEFAULT 0,
		issued TEXT NOT NULL DEFAULT '',
		duration INTEGER NOT NULL DEFAULT 0,
		"range" TEXT NOT NULL DEFAULT '',
		wallet_division INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL DEFAULT '',
		is_history INTEGER NOT NULL DEFAULT 0,
		raw_json TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS member_flows (
		source TEXT NOT NULL,
		source_id INTEGER NOT NULL,
		character_id INTEGER NOT NULL DEFAULT 0,
		direction TEXT NOT NULL,
		value_isk TEXT NOT NULL DEFAULT '0',
		occurred_at TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (source, source_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sync_cursors (
		domain TEXT PRIMARY KEY,
		last_id INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		inserted INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS type_names (
		type_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS characters (
		character_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		last_updated TEXT NOT NULL DEFAULT ''
	)`,
}

func (s *Store) migrate() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// Counts tallies what one page commit did to its table.
type Counts struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Add accumulates other into c.
func (c *Counts) Add(other Counts) {
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Skipped += other.Skipped
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// advanceCursor moves a domain's watermark forward, never backward. It runs
// inside the same transaction as the page it covers so the cursor can only
// ever point at durably committed records.
func advanceCursor(ctx context.Context, tx *sql.Tx, domain string, lastID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sync_cursors (domain, last_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(domain) DO UPDATE SET
			last_id = excluded.last_id,
			updated_at = excluded.updated_at
		WHERE excluded.last_id > sync_cursors.last_id`,
		domain, lastID, timeToDB(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("advancing %s cursor: %w", domain, err)
	}
	return nil
}

// Cursor returns a domain's watermark; ok is false when the domain has
// never completed a page.
func (s *Store) Cursor(ctx context.Context, domain string) (lastID int64, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT last_id FROM sync_cursors WHERE domain = ?`, domain).Scan(&lastID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading %s cursor: %w", domain, err)
	}
	return lastID, true, nil
}

func timeToDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func timeFromDB(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToDB(b bool) int {
	if b {
		return 1
	}
	return 0
}

// decFromDB parses a stored decimal, treating anything unparseable as zero.
// Values are only ever written through decimal.String, so a parse failure
// means a hand-edited database rather than a code path.
func decFromDB(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
