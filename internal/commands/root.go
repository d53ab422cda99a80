// Package commands wires the CLI surface: config loading, store and
// client construction, and one cobra command per ledger operation.
package commands

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/corpledger-dev/corpledger/internal/buildinfo"
	"github.com/corpledger-dev/corpledger/internal/config"
	"github.com/corpledger-dev/corpledger/internal/esi"
	"github.com/corpledger-dev/corpledger/internal/logger"
	"github.com/corpledger-dev/corpledger/internal/names"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// app carries the flag state shared by every subcommand.
type app struct {
	cfgPath string
	verbose bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "corpledger",
		Short:   "EVE Online corporation economic ledger",
		Version: buildinfo.Summary(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "config.yaml", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newInitCommand(a))
	rootCmd.AddCommand(newSyncWalletCommand(a))
	rootCmd.AddCommand(newSyncContractsCommand(a))
	rootCmd.AddCommand(newSyncIndustryCommand(a))
	rootCmd.AddCommand(newSyncMarketCommand(a))
	rootCmd.AddCommand(newSyncFlowsCommand(a))
	rootCmd.AddCommand(newListContractsCommand(a))
	rootCmd.AddCommand(newListDonationsCommand(a))
	rootCmd.AddCommand(newReportFlowsCommand(a))
	rootCmd.AddCommand(newDashboardCommand(a))
	rootCmd.AddCommand(newExportDatasetCommand(a))
	rootCmd.AddCommand(newExportExcelCommand(a))

	return rootCmd
}

// setup loads and validates the config and builds the logger. ESI
// credentials are validated separately by the commands that talk to ESI,
// so report commands work on a copied database without them.
func (a *app) setup() (*config.Config, zerolog.Logger, error) {
	log := logger.New(a.verbose)
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return nil, log, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, log, nil
}

// resolver builds a name resolver, ESI-backed when credentials are
// configured and cache-only otherwise.
func (a *app) resolver(cfg *config.Config, st *store.Store, log zerolog.Logger) *names.Resolver {
	var lookup names.Lookup
	if cfg.ValidateESI() == nil {
		lookup = esi.New(cfg.ESI, cfg.Corp, log)
	}
	return names.New(st, lookup, log)
}
