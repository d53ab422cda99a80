package sync

import (
	"context"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// SyncMarket pulls the corporation's market orders from both the open and
// the history endpoint. Open orders mutate as they fill, so both lists are
// fetched to exhaustion every run. History pages commit first: once an
// order is settled there, its open-endpoint row (if any still arrives from
// a stale cache) is a skip, not a downgrade.
func (e *Engine) SyncMarket(ctx context.Context) (model.SyncRun, error) {
	run := e.newRun(store.DomainMarket)

	e.enterPhase(store.DomainMarket, phaseFetching)
	openPages, err := e.fetchOrders(ctx, e.src.MarketOrders)
	if err != nil {
		return e.finish(ctx, run, store.Counts{}, 0, err)
	}
	histPages, err := e.fetchOrders(ctx, e.src.MarketOrderHistory)
	if err != nil {
		return e.finish(ctx, run, store.Counts{}, 0, err)
	}

	e.enterPhase(store.DomainMarket, phaseCommitting)
	var counts store.Counts
	committed := 0
	for _, pages := range [][][]model.MarketOrder{histPages, openPages} {
		for i := len(pages) - 1; i >= 0; i-- {
			orders := pages[i]
			c, err := e.store.SaveMarketPage(ctx, orders, maxOrderID(orders))
			if err != nil {
				return e.finish(ctx, run, counts, committed, err)
			}
			counts.Add(c)
			committed++
		}
	}

	e.enterPhase(store.DomainMarket, phaseDone)
	return e.finish(ctx, run, counts, committed, nil)
}

func (e *Engine) fetchOrders(ctx context.Context, fetch func(context.Context, int) ([]model.MarketOrder, int, error)) ([][]model.MarketOrder, error) {
	var pages [][]model.MarketOrder
	for page := 1; ; page++ {
		orders, total, err := fetch(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			break
		}
		pages = append(pages, orders)
		if page >= total {
			break
		}
	}
	return pages, nil
}

func maxOrderID(orders []model.MarketOrder) int64 {
	var max int64
	for _, o := range orders {
		if o.OrderID > max {
			max = o.OrderID
		}
	}
	return max
}
