package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlowDirection says which way value moved relative to the corporation.
type FlowDirection string

const (
	FlowIn  FlowDirection = "in"  // member gave value to the corp
	FlowOut FlowDirection = "out" // corp gave value to the member
)

// FlowSource identifies the rule that classified a raw record into a flow.
type FlowSource string

const (
	// SourceWallet is a direct ISK donation found in the wallet journal.
	SourceWallet FlowSource = "wallet"
	// SourceTrade is a wallet entry settled against a finished contract.
	SourceTrade FlowSource = "trade"
	// SourceContractIn is a zero-price donation contract to the corp,
	// valued at its appraisal.
	SourceContractIn FlowSource = "contract_in"
	// SourceContractOut is a below-value corp sale, the subsidy being
	// appraisal minus price.
	SourceContractOut FlowSource = "contract_out"
	// SourceContractSubsidy is the buyer credit granted on a subsidized
	// contract, a configured fraction of the subsidy.
	SourceContractSubsidy FlowSource = "contract_out_subsidy"
	// SourceIndustry credits an installer for a delivered job's cost.
	SourceIndustry FlowSource = "industry"
	// SourceMarket credits a seller a configured fraction of realized
	// sell-order value.
	SourceMarket FlowSource = "market"
)

// Flow is one derived member-value event. The (Source, SourceID) pair ties
// it to the raw record it was derived from and keys the table, which is what
// makes derivation re-runnable without duplication. Flows are projections:
// they can always be rebuilt from the raw tables.
type Flow struct {
	Source      FlowSource
	SourceID    int64 // journal id, contract id, job id or order id
	CharacterID int64
	Direction   FlowDirection
	Value       decimal.Decimal // always positive; Direction carries the sign
	OccurredAt  time.Time
	Note        string
}

// Signed returns the value with FlowOut negated, for net aggregation.
func (f Flow) Signed() decimal.Decimal {
	if f.Direction == FlowOut {
		return f.Value.Neg()
	}
	return f.Value
}
