// Package export writes ledger data to external formats: a multi-sheet
// Excel workbook of every table, and the per-character contribution CSV.
package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/corpledger-dev/corpledger/internal/store"
)

// Excel writes one worksheet per exportable table to an xlsx workbook at
// path, header row first, every value rendered as text.
func Excel(ctx context.Context, st *store.Store, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, table := range store.ExportTables() {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", table); err != nil {
				return fmt.Errorf("naming sheet %s: %w", table, err)
			}
		} else {
			if _, err := f.NewSheet(table); err != nil {
				return fmt.Errorf("adding sheet %s: %w", table, err)
			}
		}

		cols, rows, err := st.DumpTable(ctx, table)
		if err != nil {
			return fmt.Errorf("dumping %s: %w", table, err)
		}

		if err := f.SetSheetRow(table, "A1", &cols); err != nil {
			return fmt.Errorf("writing %s header: %w", table, err)
		}
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return fmt.Errorf("addressing %s row %d: %w", table, r, err)
			}
			if err := f.SetSheetRow(table, cell, &row); err != nil {
				return fmt.Errorf("writing %s row %d: %w", table, r, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
