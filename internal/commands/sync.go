package commands

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corpledger-dev/corpledger/internal/esi"
	"github.com/corpledger-dev/corpledger/internal/flow"
	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
	"github.com/corpledger-dev/corpledger/internal/sync"
)

// withEngine builds the ESI client and sync engine, runs one domain
// sync, and prints its outcome. run is a method expression like
// (*sync.Engine).SyncWallet.
func (a *app) withEngine(cmd *cobra.Command, run func(*sync.Engine, context.Context) (model.SyncRun, error)) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	if err := cfg.ValidateESI(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	st, err := store.Open(cfg.DB.Path, log)
	if err != nil {
		return err
	}
	defer st.Close()

	client := esi.New(cfg.ESI, cfg.Corp, log)
	engine := sync.New(client, st, cfg.Custom.DonationRefTypes, log)
	result, err := run(engine, cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Synced %s: %d pages, %d inserted, %d updated, %d skipped\n",
		result.Domain, result.Pages, result.Inserted, result.Updated, result.Skipped)
	return nil
}

func newSyncWalletCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-wallet",
		Short: "Sync the corp wallet journal and derive donations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, (*sync.Engine).SyncWallet)
		},
	}
}

func newSyncContractsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-contracts",
		Short: "Sync corporation contracts and their item manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, (*sync.Engine).SyncContracts)
		},
	}
}

func newSyncIndustryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-industry",
		Short: "Sync corporation industry jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, (*sync.Engine).SyncIndustry)
		},
	}
}

func newSyncMarketCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-market",
		Short: "Sync corporation market orders, open and settled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, (*sync.Engine).SyncMarket)
		},
	}
}

func newSyncFlowsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-flows",
		Short: "Derive member value flows from synced records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := a.setup()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DB.Path, log)
			if err != nil {
				return err
			}
			defer st.Close()

			rules := flow.Rules{
				SubsidyCreditRate: decimal.NewFromFloat(cfg.Custom.SubsidyCreditRate),
				MarketCreditRate:  decimal.NewFromFloat(cfg.Custom.MarketCreditRate),
			}
			stats, err := flow.New(st, rules, log).Derive(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Derived %d new flows (%d entries awaiting context)\n", stats.Added(), stats.Gaps)
			return nil
		},
	}
}
