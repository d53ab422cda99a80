package flow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
)

const maxNoteLen = 200

// deriveWalletDonations turns derived donation rows into inbound wallet
// flows, valued at the journal amount.
func (d *Deriver) deriveWalletDonations(ctx context.Context, stats *Stats) error {
	donations, err := d.store.AllDonations(ctx)
	if err != nil {
		return fmt.Errorf("loading donations: %w", err)
	}
	for _, dn := range donations {
		if dn.CharacterID == 0 {
			continue
		}
		added, err := d.record(ctx, model.Flow{
			Source:      model.SourceWallet,
			SourceID:    dn.JournalID,
			CharacterID: dn.CharacterID,
			Direction:   model.FlowIn,
			Value:       dn.Amount,
			OccurredAt:  dn.Date,
			Note:        clip(dn.Description, maxNoteLen),
		})
		if err != nil {
			return err
		}
		if added {
			stats.Wallet++
		}
	}
	return nil
}

// deriveTrades classifies journal entries that settle a contract. The
// trade is valued at the contract's price, not the journal amount, so
// partial payments and fees do not distort it. An entry whose contract
// has not synced yet, or is not completed yet, stays unclassified until
// a later pass.
func (d *Deriver) deriveTrades(ctx context.Context, stats *Stats) error {
	entries, err := d.store.ContractContextEntries(ctx)
	if err != nil {
		return fmt.Errorf("loading contract-context entries: %w", err)
	}
	for _, e := range entries {
		exists, err := d.store.HasFlow(ctx, model.SourceTrade, e.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		c, err := d.store.ContractByID(ctx, e.ContextID)
		if err != nil {
			return err
		}
		if c == nil || !c.Status.Completed() {
			stats.Gaps++
			continue
		}

		direction := model.FlowIn
		counterparty := e.FirstPartyID
		if e.Amount.IsNegative() {
			direction = model.FlowOut
			counterparty = e.SecondPartyID
		}
		if counterparty == 0 {
			stats.Gaps++
			continue
		}

		added, err := d.record(ctx, model.Flow{
			Source:      model.SourceTrade,
			SourceID:    e.ID,
			CharacterID: counterparty,
			Direction:   direction,
			Value:       c.Price,
			OccurredAt:  e.Date,
			Note:        clip(fmt.Sprintf("Contract %d trade (%s)", c.ContractID, e.RefType), maxNoteLen),
		})
		if err != nil {
			return err
		}
		if added {
			stats.Trades++
		}
	}
	return nil
}

// deriveContractFlows handles appraised finished contracts. Zero-price
// contracts are donations in at the appraisal value. Priced contracts
// assigned on behalf of the corp are subsidies: the member got goods
// worth more than they paid, so the difference flows out, and a fraction
// of it is credited back in.
func (d *Deriver) deriveContractFlows(ctx context.Context, stats *Stats) error {
	contracts, err := d.store.FinishedAppraisedContracts(ctx)
	if err != nil {
		return fmt.Errorf("loading appraised contracts: %w", err)
	}
	for _, c := range contracts {
		occurred := c.DateCompleted
		if occurred.IsZero() {
			occurred = c.DateIssued
		}

		if c.ZeroPrice() {
			if c.IssuerID == 0 {
				continue
			}
			added, err := d.record(ctx, model.Flow{
				Source:      model.SourceContractIn,
				SourceID:    c.ContractID,
				CharacterID: c.IssuerID,
				Direction:   model.FlowIn,
				Value:       c.Appraisal,
				OccurredAt:  occurred,
				Note:        "Donation contract to corp",
			})
			if err != nil {
				return err
			}
			if added {
				stats.ContractIn++
			}
			continue
		}

		if !c.ForCorporation || c.AssigneeID == 0 {
			continue
		}
		subsidy := c.Appraisal.Sub(c.Price)
		if !subsidy.IsPositive() {
			continue
		}

		added, err := d.record(ctx, model.Flow{
			Source:      model.SourceContractOut,
			SourceID:    c.ContractID,
			CharacterID: c.AssigneeID,
			Direction:   model.FlowOut,
			Value:       subsidy,
			OccurredAt:  occurred,
			Note:        "Corp subsidy / payout",
		})
		if err != nil {
			return err
		}
		if added {
			stats.Subsidies++
		}

		_, err = d.record(ctx, model.Flow{
			Source:      model.SourceContractSubsidy,
			SourceID:    c.ContractID,
			CharacterID: c.AssigneeID,
			Direction:   model.FlowIn,
			Value:       subsidy.Mul(d.rules.SubsidyCreditRate),
			OccurredAt:  occurred,
			Note:        "Corp Discount Credit",
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// deriveIndustryCredits credits installers the cost of delivered jobs, a
// proxy for the manufacturing value they contributed.
func (d *Deriver) deriveIndustryCredits(ctx context.Context, stats *Stats) error {
	jobs, err := d.store.DeliveredJobs(ctx)
	if err != nil {
		return fmt.Errorf("loading delivered jobs: %w", err)
	}
	for _, j := range jobs {
		if !j.Cost.IsPositive() {
			continue
		}
		occurred := j.EndDate
		if occurred.IsZero() {
			occurred = j.StartDate
		}
		added, err := d.record(ctx, model.Flow{
			Source:      model.SourceIndustry,
			SourceID:    j.JobID,
			CharacterID: j.InstallerID,
			Direction:   model.FlowIn,
			Value:       j.Cost,
			OccurredAt:  occurred,
			Note:        clip(fmt.Sprintf("Industry job %d, type %d, runs %d", j.JobID, j.ProductTypeID, j.Runs), maxNoteLen),
		})
		if err != nil {
			return err
		}
		if added {
			stats.Industry++
		}
	}
	return nil
}

// deriveMarketCredits credits sellers a fraction of the realized value of
// settled sell orders.
func (d *Deriver) deriveMarketCredits(ctx context.Context, stats *Stats) error {
	orders, err := d.store.SettledSellOrders(ctx)
	if err != nil {
		return fmt.Errorf("loading settled sell orders: %w", err)
	}
	for _, o := range orders {
		sold := o.SoldVolume()
		if sold <= 0 {
			continue
		}
		credit := o.Price.Mul(decimal.NewFromInt(sold)).Mul(d.rules.MarketCreditRate)
		if !credit.IsPositive() {
			continue
		}
		added, err := d.record(ctx, model.Flow{
			Source:      model.SourceMarket,
			SourceID:    o.OrderID,
			CharacterID: o.IssuedBy,
			Direction:   model.FlowIn,
			Value:       credit,
			OccurredAt:  o.Issued,
			Note:        clip(fmt.Sprintf("Market sell order %d, state %s, sold %d @ %s", o.OrderID, o.State, sold, o.Price), maxNoteLen),
		})
		if err != nil {
			return err
		}
		if added {
			stats.Market++
		}
	}
	return nil
}
