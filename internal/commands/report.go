package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/report"
	"github.com/corpledger-dev/corpledger/internal/store"
)

func newReportFlowsCommand(a *app) *cobra.Command {
	var limit int
	var direction string
	var source string
	var notify bool

	cmd := &cobra.Command{
		Use:   "report-flows",
		Short: "Show recent member flows in a Discord-friendly format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch direction {
			case "", "in", "out":
			default:
				return fmt.Errorf("invalid --direction %q (want in or out)", direction)
			}

			cfg, log, err := a.setup()
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DB.Path, log)
			if err != nil {
				return err
			}
			defer st.Close()

			lines, err := report.Flows(cmd.Context(), os.Stdout, st, a.resolver(cfg, st, log), limit,
				model.FlowDirection(direction), model.FlowSource(source))
			if err != nil {
				return err
			}

			notifier := report.NewNotifier(cfg.Custom.DiscordWebhook)
			if !notify || !notifier.Enabled() {
				return nil
			}
			for _, line := range lines {
				if err := notifier.Send(cmd.Context(), line); err != nil {
					log.Warn().Err(err).Msg("discord notification failed")
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "number of recent flows to show")
	cmd.Flags().StringVar(&direction, "direction", "", "filter by flow direction (in or out)")
	cmd.Flags().StringVar(&source, "source", "", "filter by source (wallet, trade, contract_in, ...)")
	cmd.Flags().BoolVar(&notify, "notify", false, "also post each line to the configured Discord webhook")

	return cmd
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show value in/out totals and implied shares",
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

			return report.Dashboard(cmd.Context(), os.Stdout, st, decimal.NewFromFloat(cfg.Custom.ShareUnitISK))
		},
	}
}
