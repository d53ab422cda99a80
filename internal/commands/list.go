package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/corpledger-dev/corpledger/internal/appraise"
	"github.com/corpledger-dev/corpledger/internal/report"
	"github.com/corpledger-dev/corpledger/internal/store"
)

func newListContractsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list-contracts",
		Short: "List recent contracts with items and appraisal values",
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

			resolver := a.resolver(cfg, st, log)
			janice := appraise.New(cfg.Janice, log)
			var valuer report.Valuer
			if janice.Enabled() {
				valuer = appraise.NewAppraiser(janice, st, resolver, log)
			}
			return report.Contracts(cmd.Context(), os.Stdout, st, resolver, valuer, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of contracts to list")

	return cmd
}

func newListDonationsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list-donations",
		Short: "List recent donations seen in the wallet journal",
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

			return report.Donations(cmd.Context(), os.Stdout, st, a.resolver(cfg, st, log), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of donations to list")

	return cmd
}
