package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ContextTypeContract marks journal entries whose ContextID refers to a
// contract.
const ContextTypeContract = "contract_id"

// JournalEntry is one corporation wallet journal row as returned by ESI.
// Entries are immutable facts: once stored they are never updated or deleted.
type JournalEntry struct {
	ID            int64           `json:"id"`
	Date          time.Time       `json:"date"`
	RefType       string          `json:"ref_type"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
	Description   string          `json:"description"`
	Reason        string          `json:"reason"`
	FirstPartyID  int64           `json:"first_party_id"`
	SecondPartyID int64           `json:"second_party_id"`
	ContextID     int64           `json:"context_id"`
	ContextIDType string          `json:"context_id_type"`
	Tax           decimal.Decimal `json:"tax"`
	TaxReceiverID int64           `json:"tax_receiver_id"`

	// Division is the corp wallet division the entry was fetched from.
	// Not part of the ESI payload.
	Division int `json:"-"`

	// Raw is the original ESI JSON for the row, kept verbatim.
	Raw json.RawMessage `json:"-"`
}

// HasContractContext reports whether the entry is linked to a contract.
func (e JournalEntry) HasContractContext() bool {
	return e.ContextIDType == ContextTypeContract && e.ContextID != 0
}
