package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus represents the lifecycle state of a contract.
type ContractStatus string

const (
	ContractOutstanding        ContractStatus = "outstanding"
	ContractInProgress         ContractStatus = "in_progress"
	ContractFinishedIssuer     ContractStatus = "finished_issuer"
	ContractFinishedContractor ContractStatus = "finished_contractor"
	ContractFinished           ContractStatus = "finished"
	ContractCancelled          ContractStatus = "cancelled"
	ContractRejected           ContractStatus = "rejected"
	ContractFailed             ContractStatus = "failed"
	ContractDeleted            ContractStatus = "deleted"
	ContractReversed           ContractStatus = "reversed"
)

// Terminal reports whether the status can no longer change upstream.
// Terminal contracts are immutable locally: later syncs never update them.
func (s ContractStatus) Terminal() bool {
	switch s {
	case ContractFinished, ContractFinishedIssuer, ContractFinishedContractor,
		ContractCancelled, ContractRejected, ContractFailed,
		ContractDeleted, ContractReversed:
		return true
	}
	return false
}

// Completed reports whether the contract actually concluded with an exchange
// (as opposed to being cancelled, rejected or expired).
func (s ContractStatus) Completed() bool {
	switch s {
	case ContractFinished, ContractFinishedIssuer, ContractFinishedContractor:
		return true
	}
	return false
}

// Contract is one corporation contract as returned by ESI, plus the locally
// computed appraisal value when one has been fetched.
type Contract struct {
	ContractID     int64           `json:"contract_id"`
	IssuerID       int64           `json:"issuer_id"`
	IssuerCorpID   int64           `json:"issuer_corporation_id"`
	AssigneeID     int64           `json:"assignee_id"`
	AcceptorID     int64           `json:"acceptor_id"`
	Type           string          `json:"type"`
	Status         ContractStatus  `json:"status"`
	Title          string          `json:"title"`
	ForCorporation bool            `json:"for_corporation"`
	Availability   string          `json:"availability"`
	DateIssued     time.Time       `json:"date_issued"`
	DateExpired    time.Time       `json:"date_expired"`
	DateAccepted   time.Time       `json:"date_accepted"`
	DateCompleted  time.Time       `json:"date_completed"`
	Price          decimal.Decimal `json:"price"`
	Reward         decimal.Decimal `json:"reward"`
	Collateral     decimal.Decimal `json:"collateral"`
	Volume         decimal.Decimal `json:"volume"`
	StartLocation  int64           `json:"start_location_id"`
	EndLocation    int64           `json:"end_location_id"`

	// Appraisal is the split-sell market value of the contract's included
	// items, zero until an appraisal has been stored. Not part of ESI.
	Appraisal decimal.Decimal `json:"-"`
	Appraised bool            `json:"-"`

	Raw json.RawMessage `json:"-"`
}

// ZeroPrice reports whether the contract asks nothing of its acceptor.
// Item-exchange contracts at zero price are donation candidates.
func (c Contract) ZeroPrice() bool {
	return c.Price.IsZero()
}

// ContractItem is one row of a contract's item manifest.
type ContractItem struct {
	RecordID    int64 `json:"record_id"`
	TypeID      int64 `json:"type_id"`
	Quantity    int64 `json:"quantity"`
	RawQuantity int64 `json:"raw_quantity"`
	IsIncluded  bool  `json:"is_included"`
	IsSingleton bool  `json:"is_singleton"`

	// ContractID is filled in by the fetcher; the items endpoint does not
	// repeat it per row.
	ContractID int64 `json:"-"`

	Raw json.RawMessage `json:"-"`
}
