package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpledger-dev/corpledger/internal/logger"
	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

type fakeNamer struct {
	types      map[int64]string
	characters map[int64]string
}

func (n fakeNamer) Type(_ context.Context, typeID int64) string {
	if name, ok := n.types[typeID]; ok {
		return name
	}
	return fmt.Sprintf("type:%d", typeID)
}

func (n fakeNamer) Character(_ context.Context, characterID int64) string {
	if name, ok := n.characters[characterID]; ok {
		return name
	}
	return fmt.Sprintf("char:%d", characterID)
}

type fakeValuer struct {
	value decimal.Decimal
	ok    bool
}

func (v fakeValuer) Ensure(context.Context, model.Contract) (decimal.Decimal, bool) {
	return v.value, v.ok
}

func openTest(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(day int) time.Time {
	return time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
}

func TestFormatISK(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"999", "999.00"},
		{"1000", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"123456789", "123,456,789.00"},
		{"-1500", "-1,500.00"},
		{"1000000000", "1,000,000,000.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatISK(dec(tt.in)), "FormatISK(%s)", tt.in)
	}
}

func TestFormatFlowLine(t *testing.T) {
	in := model.Flow{
		Source:      model.SourceWallet,
		SourceID:    100,
		CharacterID: 90001,
		Direction:   model.FlowIn,
		Value:       dec("1000"),
		OccurredAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Note:        "gift",
	}
	line := FormatFlowLine(in, "Alice")
	assert.Regexp(t, `^\[2025-03-01 12:00\]\[IN\]\[wallet\] Alice\s+\+1,000\.00 ISK  gift$`, line)

	out := in
	out.Direction = model.FlowOut
	out.Value = dec("2500")
	line = FormatFlowLine(out, "Bob")
	assert.Regexp(t, `\[OUT\]\[wallet\] Bob\s+-2,500\.00 ISK  gift$`, line)
}

func TestFormatFlowLineTruncatesNote(t *testing.T) {
	f := model.Flow{
		Source:     model.SourceMarket,
		Direction:  model.FlowIn,
		Value:      dec("1"),
		OccurredAt: date(1),
		Note:       strings.Repeat("x", 120),
	}
	line := FormatFlowLine(f, "Alice")
	assert.True(t, strings.HasSuffix(line, "..."))
	assert.NotContains(t, line, strings.Repeat("x", 81))
	assert.Contains(t, line, strings.Repeat("x", 77))
}

func seedFlow(t *testing.T, s *store.Store, f model.Flow) {
	t.Helper()
	require.NoError(t, s.UpsertFlow(context.Background(), f))
}

func TestFlowsListing(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedFlow(t, s, model.Flow{
		Source: model.SourceWallet, SourceID: 100, CharacterID: 90001,
		Direction: model.FlowIn, Value: dec("50000000"), OccurredAt: date(1), Note: "war chest",
	})
	seedFlow(t, s, model.Flow{
		Source: model.SourceContractOut, SourceID: 7001, CharacterID: 90002,
		Direction: model.FlowOut, Value: dec("10000000"), OccurredAt: date(2), Note: "Corp subsidy / payout",
	})

	namer := fakeNamer{characters: map[int64]string{90001: "Alice", 90002: "Bob"}}

	var buf bytes.Buffer
	lines, err := Flows(ctx, &buf, s, namer, 10, "", "")
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Contains(t, buf.String(), "Recent member flows (limit 10) direction=ANY source=ANY")
	// Newest first.
	assert.Contains(t, lines[0], "[OUT][contract_out] Bob")
	assert.Contains(t, lines[0], "-10,000,000.00 ISK")
	assert.Contains(t, lines[1], "[IN][wallet] Alice")

	// Filtered by direction.
	buf.Reset()
	lines, err = Flows(ctx, &buf, s, namer, 10, model.FlowIn, "")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, buf.String(), "direction=IN")
	assert.Contains(t, lines[0], "Alice")
}

func TestFlowsListingEmpty(t *testing.T) {
	s := openTest(t)
	var buf bytes.Buffer
	lines, err := Flows(context.Background(), &buf, s, fakeNamer{}, 10, "", "")
	require.NoError(t, err)
	assert.Nil(t, lines)
	assert.Equal(t, "No member flows found.\n", buf.String())
}

func TestDashboard(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedFlow(t, s, model.Flow{
		Source: model.SourceWallet, SourceID: 1, CharacterID: 90001,
		Direction: model.FlowIn, Value: dec("3000000000"), OccurredAt: date(1),
	})
	seedFlow(t, s, model.Flow{
		Source: model.SourceContractOut, SourceID: 2, CharacterID: 90002,
		Direction: model.FlowOut, Value: dec("500000000"), OccurredAt: date(2),
	})

	var buf bytes.Buffer
	err := Dashboard(ctx, &buf, s, dec("1000000000"))
	require.NoError(t, err)

	got := buf.String()
	assert.Contains(t, got, "=== Corp Value Flow Dashboard ===")
	assert.Contains(t, got, "3,000,000,000.00 ISK")
	assert.Contains(t, got, "500,000,000.00 ISK")
	assert.Contains(t, got, "2,500,000,000.00 ISK")
	assert.Contains(t, got, "1,000,000,000 ISK per share")
	assert.Contains(t, got, "2.5000")
}

func TestDonationsListing(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	entries := []model.JournalEntry{
		{
			ID: 100, Date: date(1), RefType: "player_donation",
			Amount: dec("50000000"), FirstPartyID: 90001,
			Description: "for the war chest", Raw: []byte(`{}`),
		},
	}
	_, err := s.SaveJournalPage(ctx, entries, 100)
	require.NoError(t, err)
	_, err = s.DeriveDonations(ctx, []string{"player_donation"})
	require.NoError(t, err)

	var buf bytes.Buffer
	err = Donations(ctx, &buf, s, fakeNamer{characters: map[int64]string{90001: "Alice"}}, 10)
	require.NoError(t, err)

	got := buf.String()
	assert.Contains(t, got, "Amount(ISK)")
	assert.Contains(t, got, "Alice")
	assert.Contains(t, got, "50,000,000.00")
	assert.Contains(t, got, "for the war chest")

	var empty bytes.Buffer
	require.NoError(t, Donations(ctx, &empty, openTest(t), fakeNamer{}, 10))
	assert.Equal(t, "No donations found.\n", empty.String())
}

func TestContractsListing(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	contract := model.Contract{
		ContractID: 4400001, IssuerID: 90001, Type: "item_exchange",
		Status: model.ContractFinished, Title: "gift basket",
		DateIssued: date(1), Price: dec("0"), Raw: []byte(`{}`),
	}
	_, err := s.SaveContractsPage(ctx, []model.Contract{contract}, 4400001)
	require.NoError(t, err)
	_, err = s.SaveContractItems(ctx, 4400001, []model.ContractItem{
		{ContractID: 4400001, RecordID: 1, TypeID: 587, Quantity: 2, IsIncluded: true, Raw: []byte(`{}`)},
		{ContractID: 4400001, RecordID: 2, TypeID: 34, Quantity: 500, IsIncluded: false, IsSingleton: true, Raw: []byte(`{}`)},
	})
	require.NoError(t, err)

	namer := fakeNamer{
		types:      map[int64]string{587: "Rifter", 34: "Tritanium"},
		characters: map[int64]string{90001: "Alice"},
	}

	var buf bytes.Buffer
	err = Contracts(ctx, &buf, s, namer, fakeValuer{value: dec("80000000"), ok: true}, 10)
	require.NoError(t, err)

	got := buf.String()
	assert.Contains(t, got, "Contract 4400001 | Type: item_exchange | Status: finished")
	assert.Contains(t, got, "Title: gift basket")
	assert.Contains(t, got, "by Alice")
	assert.Contains(t, got, "- 2x Rifter")
	assert.Contains(t, got, "- 500x Tritanium [singleton] (not included)")
	assert.Contains(t, got, "Immediate Split:  80,000,000.00 ISK")

	// Without a valuer the listing says so instead of pricing.
	buf.Reset()
	err = Contracts(ctx, &buf, s, namer, nil, 10)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Janice appraisal: (API key not configured)")
}

func TestNotifierSend(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	require.True(t, n.Enabled())
	err := n.Send(context.Background(), "[2025-03-01 12:00][IN][wallet] Alice  +1,000.00 ISK  gift")
	require.NoError(t, err)

	assert.Equal(t, "Ledger Bot", payload["username"])
	assert.True(t, strings.HasPrefix(payload["content"], "Update from Corp Ledger Bot!"))
	assert.Contains(t, payload["content"], "[IN][wallet] Alice")

	assert.False(t, NewNotifier("").Enabled())
}

func TestNotifierSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Send(context.Background(), "line")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
