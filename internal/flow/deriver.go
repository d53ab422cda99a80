// Package flow classifies synced raw records into member value flows.
//
// Each rule reads one raw table and upserts flows keyed by (source,
// source id), so a pass over unchanged raw state adds nothing. Records
// whose context has not arrived yet (a journal entry pointing at a
// contract that is absent or still open) are left unclassified and
// picked up on a later pass once the context syncs.
package flow

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// Rules holds the tunable classification parameters.
type Rules struct {
	// SubsidyCreditRate is the fraction of a contract subsidy credited
	// back to the member who accepted it.
	SubsidyCreditRate decimal.Decimal
	// MarketCreditRate is the fraction of realized sell-order value
	// credited to the order's issuer.
	MarketCreditRate decimal.Decimal
}

// DefaultRules returns the standard rates: 10% subsidy credit, 1% market
// credit.
func DefaultRules() Rules {
	return Rules{
		SubsidyCreditRate: decimal.New(1, -1),
		MarketCreditRate:  decimal.New(1, -2),
	}
}

// Stats counts what one derivation pass added, by rule, plus the entries
// whose context is still missing.
type Stats struct {
	Wallet     int
	Trades     int
	ContractIn int
	Subsidies  int
	Industry   int
	Market     int
	Gaps       int
}

// Added is the number of new flows this pass produced.
func (s Stats) Added() int {
	return s.Wallet + s.Trades + s.ContractIn + s.Subsidies + s.Industry + s.Market
}

// Deriver runs the classification rules against a store.
type Deriver struct {
	store *store.Store
	rules Rules
	log   zerolog.Logger
}

func New(st *store.Store, rules Rules, log zerolog.Logger) *Deriver {
	return &Deriver{store: st, rules: rules, log: log}
}

// Derive runs every rule, oldest records first. One unresolvable record
// never fails the pass; a store or rule error does.
func (d *Deriver) Derive(ctx context.Context) (Stats, error) {
	var stats Stats
	steps := []func(context.Context, *Stats) error{
		d.deriveWalletDonations,
		d.deriveTrades,
		d.deriveContractFlows,
		d.deriveIndustryCredits,
		d.deriveMarketCredits,
	}
	for _, step := range steps {
		if err := step(ctx, &stats); err != nil {
			return stats, err
		}
	}
	d.log.Info().
		Int("added", stats.Added()).
		Int("wallet", stats.Wallet).
		Int("trades", stats.Trades).
		Int("contract_in", stats.ContractIn).
		Int("subsidies", stats.Subsidies).
		Int("industry", stats.Industry).
		Int("market", stats.Market).
		Int("gaps", stats.Gaps).
		Msg("flow derivation complete")
	return stats, nil
}

// record upserts a flow and reports whether it was new. Upserting even
// when the flow exists lets a rule change heal previously derived values.
func (d *Deriver) record(ctx context.Context, f model.Flow) (bool, error) {
	exists, err := d.store.HasFlow(ctx, f.Source, f.SourceID)
	if err != nil {
		return false, err
	}
	if err := d.store.UpsertFlow(ctx, f); err != nil {
		return false, err
	}
	return !exists, nil
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
