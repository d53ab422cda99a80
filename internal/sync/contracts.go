package sync

import (
	"context"
	"errors"

	"github.com/corpledger-dev/corpledger/internal/esi"
	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// SyncContracts pulls the full contract list and the item manifests of
// contracts that do not have one stored yet. Contracts mutate upstream
// until they reach a terminal status, so every run fetches to exhaustion
// instead of stopping at the cursor; the store skips rewrites of terminal
// rows.
func (e *Engine) SyncContracts(ctx context.Context) (model.SyncRun, error) {
	run := e.newRun(store.DomainContracts)

	e.enterPhase(store.DomainContracts, phaseFetching)
	var pages [][]model.Contract
	for page := 1; ; page++ {
		contracts, total, err := e.src.Contracts(ctx, page)
		if err != nil {
			return e.finish(ctx, run, store.Counts{}, 0, err)
		}
		if len(contracts) == 0 {
			break
		}
		pages = append(pages, contracts)
		if page >= total {
			break
		}
	}

	e.enterPhase(store.DomainContracts, phaseCommitting)
	var counts store.Counts
	for i := len(pages) - 1; i >= 0; i-- {
		contracts := pages[i]
		c, err := e.store.SaveContractsPage(ctx, contracts, maxContractID(contracts))
		if err != nil {
			return e.finish(ctx, run, counts, len(pages)-1-i, err)
		}
		counts.Add(c)
	}

	if err := e.syncItemManifests(ctx, pages); err != nil {
		return e.finish(ctx, run, counts, len(pages), err)
	}

	e.enterPhase(store.DomainContracts, phaseDone)
	return e.finish(ctx, run, counts, len(pages), nil)
}

// syncItemManifests fetches item lists for item-carrying contracts seen
// this run that have none stored. Manifests are frozen at contract
// creation, so one successful fetch per contract is enough. A missing
// contract upstream (404) is skipped; other manifest failures are logged
// and skipped so one bad contract cannot starve the rest, except auth
// failures, which would fail for every contract and abort the run.
func (e *Engine) syncItemManifests(ctx context.Context, pages [][]model.Contract) error {
	for i := len(pages) - 1; i >= 0; i-- {
		for _, c := range pages[i] {
			if !carriesItems(c) {
				continue
			}
			stored, err := e.store.ContractItems(ctx, c.ContractID)
			if err != nil {
				return err
			}
			if len(stored) > 0 {
				continue
			}

			items, err := e.src.ContractItems(ctx, c.ContractID)
			if err != nil {
				var authErr *esi.AuthError
				if errors.As(err, &authErr) {
					return err
				}
				if errors.Is(err, esi.ErrNotFound) {
					e.log.Debug().Int64("contract_id", c.ContractID).Msg("contract gone upstream, items skipped")
				} else {
					e.log.Warn().Err(err).Int64("contract_id", c.ContractID).Msg("fetching contract items failed, skipping")
				}
				continue
			}
			if len(items) == 0 {
				continue
			}
			added, err := e.store.SaveContractItems(ctx, c.ContractID, items)
			if err != nil {
				return err
			}
			if added > 0 {
				e.log.Debug().Int64("contract_id", c.ContractID).Int("items", added).Msg("stored contract items")
			}
		}
	}
	return nil
}

// carriesItems reports whether a contract type has an item manifest worth
// fetching. Courier and loan contracts never do.
func carriesItems(c model.Contract) bool {
	return c.Type == "item_exchange" || c.Type == "auction"
}

func maxContractID(contracts []model.Contract) int64 {
	var max int64
	for _, c := range contracts {
		if c.ContractID > max {
			max = c.ContractID
		}
	}
	return max
}
