package commands

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/corpledger-dev/corpledger/internal/export"
	"github.com/corpledger-dev/corpledger/internal/store"
)

func newExportDatasetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export-dataset",
		Short: "Export per-character net value and estimated shares as CSV",
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

			return export.Dataset(cmd.Context(), os.Stdout, st, a.resolver(cfg, st, log),
				decimal.NewFromFloat(cfg.Custom.ShareUnitISK))
		},
	}
}

func newExportExcelCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-excel",
		Short: "Export all tables into a multi-sheet Excel workbook",
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

			if err := export.Excel(cmd.Context(), st, output); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "corp_full_export.xlsx", "output Excel file path")

	return cmd
}
