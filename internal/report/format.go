package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
)

// maxNoteDisplay keeps report lines short enough for Discord.
const maxNoteDisplay = 80

// FormatISK renders an amount comma-grouped with two decimal places,
// e.g. "1,234,567.89". The sign is preserved.
func FormatISK(v decimal.Decimal) string {
	return formatGrouped(v, 2)
}

func formatGrouped(v decimal.Decimal, places int32) string {
	s := v.StringFixed(places)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart := s
	frac := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, frac = s[:dot], s[dot:]
	}

	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// FormatFlowLine renders one flow as a report line:
//
//	[2025-11-22 17:05][IN][wallet] Vortakin          +123,456,789.00 ISK  Some note
func FormatFlowLine(f model.Flow, name string) string {
	ts := f.OccurredAt.UTC().Format("2006-01-02 15:04")
	dir := strings.ToUpper(string(f.Direction))

	sign := "+"
	if f.Direction == model.FlowOut {
		sign = "-"
	}
	value := sign + FormatISK(f.Value.Abs()) + " ISK"

	note := f.Note
	if len(note) > maxNoteDisplay {
		note = note[:maxNoteDisplay-3] + "..."
	}

	return fmt.Sprintf("[%s][%s][%s] %-16s %18s  %s", ts, dir, f.Source, name, value, note)
}
