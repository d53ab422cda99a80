package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderState values. ESI only reports a state on the history endpoint;
// rows from the open-orders endpoint are normalized to OrderOpen.
const (
	OrderOpen      = "open"
	OrderCancelled = "cancelled"
	OrderExpired   = "expired"
)

// MarketOrder is one corporation market order as returned by ESI. History
// ties the row to the endpoint it came from: history rows are settled and
// never change, open rows are re-fetched and updated every sync.
type MarketOrder struct {
	OrderID        int64           `json:"order_id"`
	TypeID         int64           `json:"type_id"`
	LocationID     int64           `json:"location_id"`
	RegionID       int64           `json:"region_id"`
	VolumeTotal    int64           `json:"volume_total"`
	VolumeRemain   int64           `json:"volume_remain"`
	MinVolume      int64           `json:"min_volume"`
	Price          decimal.Decimal `json:"price"`
	Escrow         decimal.Decimal `json:"escrow"`
	IsBuyOrder     bool            `json:"is_buy_order"`
	IssuedBy       int64           `json:"issued_by"`
	Issued         time.Time       `json:"issued"`
	Duration       int64           `json:"duration"`
	Range          string          `json:"range"`
	WalletDivision int             `json:"wallet_division"`
	State          string          `json:"state"`
	History        bool            `json:"-"`

	Raw json.RawMessage `json:"-"`
}

// SoldVolume returns how many units of the order have been filled.
func (o MarketOrder) SoldVolume() int64 {
	return o.VolumeTotal - o.VolumeRemain
}
