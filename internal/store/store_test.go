package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpledger-dev/corpledger/internal/logger"
	"github.com/corpledger-dev/corpledger/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func entry(id int64, refType string, amount string, day int) model.JournalEntry {
	return model.JournalEntry{
		ID:           id,
		Date:         date(2025, 3, day),
		RefType:      refType,
		Amount:       dec(amount),
		Description:  "entry",
		FirstPartyID: 90001,
		Division:     1,
		Raw:          []byte(`{"id": ` + decimal.NewFromInt(id).String() + `}`),
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, table := range ExportTables() {
		cols, rows, err := s.DumpTable(ctx, table)
		require.NoError(t, err, "table %s", table)
		assert.NotEmpty(t, cols, "table %s", table)
		assert.Empty(t, rows, "table %s", table)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.db")

	s, err := Open(path, logger.Nop())
	require.NoError(t, err)
	_, err = s.SaveJournalPage(context.Background(), []model.JournalEntry{entry(1, "player_donation", "100", 1)}, 1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing file must keep its data.
	s, err = Open(path, logger.Nop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.JournalEntry(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "player_donation", got.RefType)
}

func TestCursor(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, ok, err := s.Cursor(ctx, DomainWallet)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.SaveJournalPage(ctx, []model.JournalEntry{entry(100, "player_donation", "50", 1)}, 100)
	require.NoError(t, err)

	last, ok, err := s.Cursor(ctx, DomainWallet)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(100), last)

	// The cursor never moves backward.
	_, err = s.SaveJournalPage(ctx, nil, 50)
	require.NoError(t, err)
	last, _, err = s.Cursor(ctx, DomainWallet)
	require.NoError(t, err)
	assert.Equal(t, int64(100), last)

	// Each domain has its own cursor.
	_, ok, err = s.Cursor(ctx, DomainContracts)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDumpTableRejectsUnknown(t *testing.T) {
	s := openTest(t)
	_, _, err := s.DumpTable(context.Background(), "sqlite_master")
	require.Error(t, err)
}

func TestRecordRun(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	run := model.SyncRun{
		ID:         uuid.NewString(),
		Domain:     DomainWallet,
		StartedAt:  date(2025, 3, 1),
		FinishedAt: date(2025, 3, 1).Add(30 * time.Second),
		Pages:      3,
		Inserted:   250,
		Status:     model.RunOK,
	}
	require.NoError(t, s.RecordRun(ctx, run))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, DomainWallet, runs[0].Domain)
	assert.Equal(t, 250, runs[0].Inserted)
	assert.Equal(t, model.RunOK, runs[0].Status)
}

func TestNameCaches(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, ok, err := s.TypeName(ctx, 587)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveTypeName(ctx, 587, "Rifter"))
	name, ok, err := s.TypeName(ctx, 587)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Rifter", name)

	require.NoError(t, s.SaveCharacterName(ctx, 90001, "Pilot Alpha"))
	name, ok, err = s.CharacterName(ctx, 90001)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Pilot Alpha", name)

	// Re-caching overwrites.
	require.NoError(t, s.SaveCharacterName(ctx, 90001, "Pilot Alpha Renamed"))
	name, _, err = s.CharacterName(ctx, 90001)
	require.NoError(t, err)
	assert.Equal(t, "Pilot Alpha Renamed", name)
}
