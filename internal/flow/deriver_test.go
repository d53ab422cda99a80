package flow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpledger-dev/corpledger/internal/logger"
	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

func openTest(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDeriver(s *store.Store) *Deriver {
	return New(s, DefaultRules(), logger.Nop())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(day int) time.Time {
	return time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
}

func seedJournal(t *testing.T, s *store.Store, entries ...model.JournalEntry) {
	t.Helper()
	var max int64
	for _, e := range entries {
		if e.ID > max {
			max = e.ID
		}
	}
	_, err := s.SaveJournalPage(context.Background(), entries, max)
	require.NoError(t, err)
	_, err = s.DeriveDonations(context.Background(), []string{"player_donation"})
	require.NoError(t, err)
}

func seedContract(t *testing.T, s *store.Store, c model.Contract) {
	t.Helper()
	if c.Raw == nil {
		c.Raw = []byte(`{}`)
	}
	_, err := s.SaveContractsPage(context.Background(), []model.Contract{c}, c.ContractID)
	require.NoError(t, err)
}

func flowBySource(flows []model.Flow, src model.FlowSource) (model.Flow, bool) {
	for _, f := range flows {
		if f.Source == src {
			return f, true
		}
	}
	return model.Flow{}, false
}

// A donation with no contract context and a trade settling a finished
// contract classify independently: the donation at its journal amount,
// the trade at the contract's price.
func TestDeriveDonationAndTrade(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedContract(t, s, model.Contract{
		ContractID:    5001,
		IssuerID:      90002,
		Type:          "item_exchange",
		Status:        model.ContractFinished,
		DateIssued:    date(1),
		DateCompleted: date(2),
		Price:         dec("120000000"),
	})
	seedJournal(t, s,
		model.JournalEntry{
			ID: 100, Date: date(1), RefType: "player_donation",
			Amount: dec("50000000"), FirstPartyID: 90001,
			Description: "for the war chest", Raw: []byte(`{}`),
		},
		model.JournalEntry{
			ID: 200, Date: date(3), RefType: "contract_price",
			Amount: dec("120000000"), FirstPartyID: 90002, SecondPartyID: 98000001,
			ContextID: 5001, ContextIDType: model.ContextTypeContract, Raw: []byte(`{}`),
		},
	)

	stats, err := testDeriver(s).Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Wallet)
	assert.Equal(t, 1, stats.Trades)
	assert.Equal(t, 0, stats.Gaps)

	flows, err := s.RecentFlows(ctx, 10, "", "")
	require.NoError(t, err)
	require.Len(t, flows, 2)

	donation, ok := flowBySource(flows, model.SourceWallet)
	require.True(t, ok)
	assert.Equal(t, int64(100), donation.SourceID)
	assert.Equal(t, int64(90001), donation.CharacterID)
	assert.Equal(t, model.FlowIn, donation.Direction)
	assert.True(t, donation.Value.Equal(dec("50000000")))
	assert.Equal(t, "for the war chest", donation.Note)

	trade, ok := flowBySource(flows, model.SourceTrade)
	require.True(t, ok)
	assert.Equal(t, int64(200), trade.SourceID)
	assert.Equal(t, int64(90002), trade.CharacterID)
	assert.Equal(t, model.FlowIn, trade.Direction)
	assert.True(t, trade.Value.Equal(dec("120000000")), "trade is valued at the contract price")

	// Only the wallet donation shows up as a donation.
	donations, err := s.ListDonations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, donations, 1)
	assert.Equal(t, int64(100), donations[0].JournalID)
}

func TestDeriveIsIdempotent(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedContract(t, s, model.Contract{
		ContractID: 5001, IssuerID: 90002, Type: "item_exchange",
		Status: model.ContractFinished, DateIssued: date(1), Price: dec("10"),
	})
	seedJournal(t, s,
		model.JournalEntry{
			ID: 100, Date: date(1), RefType: "player_donation",
			Amount: dec("50"), FirstPartyID: 90001, Raw: []byte(`{}`),
		},
		model.JournalEntry{
			ID: 200, Date: date(2), RefType: "contract_price", Amount: dec("10"),
			FirstPartyID: 90002, ContextID: 5001,
			ContextIDType: model.ContextTypeContract, Raw: []byte(`{}`),
		},
	)

	d := testDeriver(s)
	first, err := d.Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added())

	second, err := d.Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Added())

	flows, err := s.RecentFlows(ctx, 10, "", "")
	require.NoError(t, err)
	assert.Len(t, flows, 2)
}

// A journal entry referencing a contract the store has not seen, or has
// seen but is still open, stays unclassified until the contract finishes.
func TestDeriveTradeWaitsForContract(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedJournal(t, s, model.JournalEntry{
		ID: 300, Date: date(1), RefType: "contract_price", Amount: dec("75"),
		FirstPartyID: 90003, ContextID: 6001,
		ContextIDType: model.ContextTypeContract, Raw: []byte(`{}`),
	})

	d := testDeriver(s)
	stats, err := d.Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Trades)
	assert.Equal(t, 1, stats.Gaps)

	// Contract shows up, still outstanding: still a gap.
	seedContract(t, s, model.Contract{
		ContractID: 6001, IssuerID: 90003, Type: "item_exchange",
		Status: model.ContractOutstanding, DateIssued: date(1), Price: dec("75"),
	})
	stats, err = d.Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Trades)
	assert.Equal(t, 1, stats.Gaps)

	// Contract finishes: the entry classifies on the next pass.
	seedContract(t, s, model.Contract{
		ContractID: 6001, IssuerID: 90003, Type: "item_exchange",
		Status: model.ContractFinished, DateIssued: date(1), Price: dec("75"),
	})
	stats, err = d.Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Trades)
	assert.Equal(t, 0, stats.Gaps)
}

func TestDeriveTradeOutbound(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedContract(t, s, model.Contract{
		ContractID: 5002, IssuerID: 90004, Type: "item_exchange",
		Status: model.ContractFinishedIssuer, DateIssued: date(1), Price: dec("30"),
	})
	seedJournal(t, s, model.JournalEntry{
		ID: 400, Date: date(2), RefType: "contract_price", Amount: dec("-30"),
		FirstPartyID: 98000001, SecondPartyID: 90004, ContextID: 5002,
		ContextIDType: model.ContextTypeContract, Raw: []byte(`{}`),
	})

	stats, err := testDeriver(s).Derive(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Trades)

	flows, err := s.RecentFlows(ctx, 10, "", model.SourceTrade)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, model.FlowOut, flows[0].Direction)
	assert.Equal(t, int64(90004), flows[0].CharacterID, "outbound flows credit the receiving party")
	assert.True(t, flows[0].Value.Equal(dec("30")))
}

// Zero-price finished contracts with an appraisal are donations valued
// at the appraisal; priced for-corporation contracts below appraisal are
// subsidies plus a fractional credit back.
func TestDeriveContractDonationAndSubsidy(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seedContract(t, s, model.Contract{
		ContractID: 7001, IssuerID: 90006, Type: "item_exchange",
		Status: model.ContractFinished, DateIssued: date(1), DateCompleted: date(2),
	})
	require.NoError(t, s.SetContractAppraisal(ctx, 7001, dec("80000000")))

	seedContract(t, s, model.Contract{
		ContractID: 7002, IssuerID: 90001, AssigneeID: 90005, Type: "item_exchange",
		Status: model.ContractFinished, ForCorporation: true,
		DateIssued: date(3), DateCompleted: date(4), Price: dec("100000000"),
	})
	require.NoError(t, s.SetContractAppraisal(ctx, 7002, dec("150000000")))

	stats, err := testDeriver(s).Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ContractIn)
	assert.Equal(t, 1, stats.Subsidies)

	flows, err := s.RecentFlows(ctx, 10, "", "")
	require.NoError(t, err)
	require.Len(t, flows, 3)

	in, ok := flowBySource(flows, model.SourceContractIn)
	require.True(t, ok)
	assert.Equal(t, int64(90006), in.CharacterID)
	assert.Equal(t, model.FlowIn, in.Direction)
	assert.True(t, in.Value.Equal(dec("80000000")))
	assert.Equal(t, "Donation contract to corp", in.Note)

	out, ok := flowBySource(flows, model.SourceContractOut)
	require.True(t, ok)
	assert.Equal(t, int64(90005), out.CharacterID)
	assert.Equal(t, model.FlowOut, out.Direction)
	assert.True(t, out.Value.Equal(dec("50000000")), "subsidy is appraisal minus price")

	credit, ok := flowBySource(flows, model.SourceContractSubsidy)
	require.True(t, ok)
	assert.Equal(t, int64(90005), credit.CharacterID)
	assert.Equal(t, model.FlowIn, credit.Direction)
	assert.True(t, credit.Value.Equal(dec("5000000")), "credit is 10% of the subsidy")
	assert.Equal(t, "Corp Discount Credit", credit.Note)
}

func TestDeriveSubsidySkipsOverpricedContracts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	// Appraisal below price: the member overpaid, no subsidy flows.
	seedContract(t, s, model.Contract{
		ContractID: 7003, IssuerID: 90001, AssigneeID: 90005, Type: "item_exchange",
		Status: model.ContractFinished, ForCorporation: true,
		DateIssued: date(1), Price: dec("200000000"),
	})
	require.NoError(t, s.SetContractAppraisal(ctx, 7003, dec("150000000")))

	stats, err := testDeriver(s).Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Added())
}

func TestDeriveIndustryCredits(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	jobs := []model.IndustryJob{
		{
			JobID: 8001, InstallerID: 90007, ProductTypeID: 603, Runs: 10,
			Cost: dec("1500000"), Status: model.JobDelivered,
			StartDate: date(1), EndDate: date(5), Raw: []byte(`{}`),
		},
		{
			JobID: 8002, InstallerID: 90007, ProductTypeID: 603, Runs: 1,
			Cost: dec("0"), Status: model.JobDelivered,
			StartDate: date(1), EndDate: date(5), Raw: []byte(`{}`),
		},
	}
	_, err := s.SaveIndustryPage(ctx, jobs, 8002)
	require.NoError(t, err)

	stats, err := testDeriver(s).Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Industry, "zero-cost jobs carry no creditable value")

	flows, err := s.RecentFlows(ctx, 10, "", model.SourceIndustry)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, int64(8001), flows[0].SourceID)
	assert.Equal(t, int64(90007), flows[0].CharacterID)
	assert.True(t, flows[0].Value.Equal(dec("1500000")))
	assert.Equal(t, "Industry job 8001, type 603, runs 10", flows[0].Note)
	assert.Equal(t, date(5), flows[0].OccurredAt.UTC())
}

func TestDeriveMarketCredits(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	orders := []model.MarketOrder{
		{
			OrderID: 9001, TypeID: 34, VolumeTotal: 100, VolumeRemain: 20,
			Price: dec("5000"), IssuedBy: 90008, Issued: date(1),
			State: model.OrderExpired, History: true, Raw: []byte(`{}`),
		},
		{
			OrderID: 9002, TypeID: 34, VolumeTotal: 50, VolumeRemain: 50,
			Price: dec("5000"), IssuedBy: 90008, Issued: date(1),
			State: model.OrderCancelled, History: true, Raw: []byte(`{}`),
		},
	}
	_, err := s.SaveMarketPage(ctx, orders, 9002)
	require.NoError(t, err)

	stats, err := testDeriver(s).Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Market, "unfilled orders earn nothing")

	flows, err := s.RecentFlows(ctx, 10, "", model.SourceMarket)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, int64(9001), flows[0].SourceID)
	assert.True(t, flows[0].Value.Equal(dec("4000")), "credit is sold x price x 1%")
	assert.Equal(t, "Market sell order 9001, state expired, sold 80 @ 5000", flows[0].Note)
}
