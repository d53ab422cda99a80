package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation is a journal entry classified as a direct ISK donation from a
// member to the corporation. It is a projection over wallet_journal keyed by
// the journal id, kept as its own table so listings and alerting don't
// re-scan the full journal.
type Donation struct {
	JournalID   int64 // wallet journal entry the donation was derived from
	CharacterID int64 // donor (first party of the journal entry)
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Processed   bool // set once an operator has acknowledged the donation
	Notes       string
}
