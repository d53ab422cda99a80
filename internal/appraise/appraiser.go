package appraise

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// TypeNamer resolves type ids for the appraisal input. *names.Resolver
// satisfies it.
type TypeNamer interface {
	Type(ctx context.Context, typeID int64) string
}

// InputLines renders a manifest as the "QTY Name" lines the pricer
// accepts. Only included items count toward a contract's value; excluded
// items are what the acceptor hands over, not what the contract is worth.
func InputLines(ctx context.Context, items []model.ContractItem, namer TypeNamer) string {
	var lines []string
	for _, it := range items {
		if !it.IsIncluded {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d %s", it.Quantity, namer.Type(ctx, it.TypeID)))
	}
	return strings.Join(lines, "\n")
}

// Appraiser fills in missing contract appraisals on demand.
type Appraiser struct {
	client *Client
	store  *store.Store
	namer  TypeNamer
	log    zerolog.Logger
}

func NewAppraiser(client *Client, st *store.Store, namer TypeNamer, log zerolog.Logger) *Appraiser {
	return &Appraiser{client: client, store: st, namer: namer, log: log}
}

// Ensure returns a contract's appraisal, fetching and storing one when
// missing. ok is false when no value is available: the pricer key is not
// configured, the contract has no included items, or the call failed.
// Failures never propagate, so a listing degrades to "no appraisal"
// instead of dying.
func (a *Appraiser) Ensure(ctx context.Context, c model.Contract) (value decimal.Decimal, ok bool) {
	if c.Appraised {
		return c.Appraisal, true
	}
	if !a.client.Enabled() {
		return decimal.Zero, false
	}

	items, err := a.store.ContractItems(ctx, c.ContractID)
	if err != nil {
		a.log.Warn().Err(err).Int64("contract_id", c.ContractID).Msg("loading items for appraisal failed")
		return decimal.Zero, false
	}
	input := InputLines(ctx, items, a.namer)
	if input == "" {
		return decimal.Zero, false
	}

	value, err = a.client.Appraise(ctx, c.ContractID, input)
	if err != nil {
		a.log.Warn().Err(err).Int64("contract_id", c.ContractID).Msg("appraisal failed")
		return decimal.Zero, false
	}
	if err := a.store.SetContractAppraisal(ctx, c.ContractID, value); err != nil {
		a.log.Warn().Err(err).Int64("contract_id", c.ContractID).Msg("storing appraisal failed")
	}
	a.log.Debug().Int64("contract_id", c.ContractID).Str("value", value.String()).Msg("contract appraised")
	return value, true
}
