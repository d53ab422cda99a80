package store

import (
	"context"
	"fmt"
	"strconv"
)

// ExportTables lists the tables included in full workbook exports, in
// worksheet order.
func ExportTables() []string {
	return []string{
		"wallet_journal",
		"donations",
		"contracts",
		"contract_items",
		"industry_jobs",
		"market_orders",
		"member_flows",
		"type_names",
		"characters",
		"sync_runs",
	}
}

// DumpTable returns a table's column names and every row rendered as
// strings, in rowid order. Only tables named by ExportTables can be dumped;
// the name is interpolated into SQL and must never come from user input.
func (s *Store) DumpTable(ctx context.Context, table string) (cols []string, rows [][]string, err error) {
	allowed := false
	for _, t := range ExportTables() {
		if t == table {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, nil, fmt.Errorf("dumping table: %q is not exported", table)
	}

	result, err := s.db.QueryContext(ctx, `SELECT * FROM "`+table+`"`)
	if err != nil {
		return nil, nil, fmt.Errorf("dumping table %s: %w", table, err)
	}
	defer result.Close()

	cols, err = result.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	for result.Next() {
		values := make([]any, len(cols))
		for i := range values {
			values[i] = new(any)
		}
		if err := result.Scan(values...); err != nil {
			return nil, nil, fmt.Errorf("scanning row of %s: %w", table, err)
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = renderValue(*(v.(*any)))
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating rows of %s: %w", table, err)
	}
	return cols, rows, nil
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
