package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestJournalEntryDecode(t *testing.T) {
	raw := `{
		"id": 12345678901,
		"date": "2025-03-01T12:30:00Z",
		"ref_type": "player_donation",
		"amount": 150000000.50,
		"balance": 898117870.51,
		"description": "Pilot A deposited cash",
		"first_party_id": 90001,
		"second_party_id": 98000001,
		"context_id": 0,
		"context_id_type": ""
	}`
	var e JournalEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	assert.Equal(t, int64(12345678901), e.ID)
	assert.Equal(t, "player_donation", e.RefType)
	assert.Equal(t, "150000000.5", e.Amount.String())
	assert.Equal(t, "898117870.51", e.Balance.String())
	assert.Equal(t, int64(90001), e.FirstPartyID)
	assert.Equal(t, 2025, e.Date.Year())
	assert.False(t, e.HasContractContext())
}

func TestJournalEntryContractContext(t *testing.T) {
	e := JournalEntry{ContextID: 4400001, ContextIDType: ContextTypeContract}
	assert.True(t, e.HasContractContext())

	// Other context kinds never link to contracts.
	e = JournalEntry{ContextID: 4400001, ContextIDType: "market_transaction_id"}
	assert.False(t, e.HasContractContext())

	e = JournalEntry{ContextIDType: ContextTypeContract}
	assert.False(t, e.HasContractContext())
}

func TestFlowSigned(t *testing.T) {
	in := Flow{Direction: FlowIn, Value: dec("100.50")}
	out := Flow{Direction: FlowOut, Value: dec("100.50")}

	assert.True(t, in.Signed().Equal(dec("100.50")))
	assert.True(t, out.Signed().Equal(dec("-100.50")))
}

func TestMarketOrderSoldVolume(t *testing.T) {
	o := MarketOrder{VolumeTotal: 1000, VolumeRemain: 250}
	assert.Equal(t, int64(750), o.SoldVolume())

	// Untouched order: nothing sold.
	o = MarketOrder{VolumeTotal: 1000, VolumeRemain: 1000}
	assert.Equal(t, int64(0), o.SoldVolume())
}
