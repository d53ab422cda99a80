package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// SaveMarketPage commits one page of market orders and advances the market
// cursor in a single transaction. Rows already settled (seen on the history
// endpoint) are final and skipped; open rows are updated in place, including
// the transition to settled when an order moves to the history endpoint.
func (s *Store) SaveMarketPage(ctx context.Context, orders []model.MarketOrder, cursor int64) (Counts, error) {
	var counts Counts
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, o := range orders {
			var history int
			err := tx.QueryRowContext(ctx,
				`SELECT is_history FROM market_orders WHERE order_id = ?`, o.OrderID).Scan(&history)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				if err := writeOrder(ctx, tx, o, true); err != nil {
					return err
				}
				counts.Inserted++
			case err != nil:
				return fmt.Errorf("checking market order %d: %w", o.OrderID, err)
			case history != 0:
				counts.Skipped++
			default:
				if err := writeOrder(ctx, tx, o, false); err != nil {
					return err
				}
				counts.Updated++
			}
		}
		return advanceCursor(ctx, tx, DomainMarket, cursor)
	})
	return counts, err
}

func writeOrder(ctx context.Context, tx *sql.Tx, o model.MarketOrder, insert bool) error {
	var err error
	if insert {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO market_orders (
				order_id, type_id, location_id, region_id,
				volume_total, volume_remain, min_volume,
				price, escrow, is_buy_order, issued_by, issued,
				duration, "range", wallet_division, state, is_history, raw_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.OrderID, o.TypeID, o.LocationID, o.RegionID,
			o.VolumeTotal, o.VolumeRemain, o.MinVolume,
			o.Price.String(), o.Escrow.String(), boolToDB(o.IsBuyOrder), o.IssuedBy, timeToDB(o.Issued),
			o.Duration, o.Range, o.WalletDivision, o.State, boolToDB(o.History), string(o.Raw))
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE market_orders SET
				type_id = ?, location_id = ?, region_id = ?,
				volume_total = ?, volume_remain = ?, min_volume = ?,
				price = ?, escrow = ?, is_buy_order = ?, issued_by = ?, issued = ?,
				duration = ?, "range" = ?, wallet_division = ?, state = ?, is_history = ?, raw_json = ?
			WHERE order_id = ?`,
			o.TypeID, o.LocationID, o.RegionID,
			o.VolumeTotal, o.VolumeRemain, o.MinVolume,
			o.Price.String(), o.Escrow.String(), boolToDB(o.IsBuyOrder), o.IssuedBy, timeToDB(o.Issued),
			o.Duration, o.Range, o.WalletDivision, o.State, boolToDB(o.History), string(o.Raw),
			o.OrderID)
	}
	if err != nil {
		return fmt.Errorf("writing market order %d: %w", o.OrderID, err)
	}
	return nil
}

// SettledSellOrders returns sell orders from the history endpoint, oldest
// first. Only settled orders feed the market credit flow rule, so partial
// fills on open orders are never counted twice.
func (s *Store) SettledSellOrders(ctx context.Context) ([]model.MarketOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, type_id, location_id, region_id,
		       volume_total, volume_remain, min_volume,
		       price, escrow, is_buy_order, issued_by, issued,
		       duration, "range", wallet_division, state, is_history, raw_json
		FROM market_orders
		WHERE is_history = 1 AND is_buy_order = 0 AND issued_by != 0
		ORDER BY issued ASC, order_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying settled sell orders: %w", err)
	}
	defer rows.Close()

	var out []model.MarketOrder
	for rows.Next() {
		var o model.MarketOrder
		var price, escrow, issued, raw string
		var buy, history int
		err := rows.Scan(&o.OrderID, &o.TypeID, &o.LocationID, &o.RegionID,
			&o.VolumeTotal, &o.VolumeRemain, &o.MinVolume,
			&price, &escrow, &buy, &o.IssuedBy, &issued,
			&o.Duration, &o.Range, &o.WalletDivision, &o.State, &history, &raw)
		if err != nil {
			return nil, fmt.Errorf("scanning market order: %w", err)
		}
		o.Price = decFromDB(price)
		o.Escrow = decFromDB(escrow)
		o.IsBuyOrder = buy != 0
		o.Issued = timeFromDB(issued)
		o.History = history != 0
		o.Raw = []byte(raw)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating market orders: %w", err)
	}
	return out, nil
}
