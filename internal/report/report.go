// Package report renders the read-side views of the ledger: flow
// listings, donation and contract listings, and the dashboard summary.
// Renderers write to an io.Writer so commands and tests share them.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/model"
	"github.com/corpledger-dev/corpledger/internal/store"
)

// Namer resolves ids to display names. *names.Resolver satisfies it.
type Namer interface {
	Type(ctx context.Context, typeID int64) string
	Character(ctx context.Context, characterID int64) string
}

// Valuer fills in a contract appraisal when one is missing.
// *appraise.Appraiser satisfies it.
type Valuer interface {
	Ensure(ctx context.Context, c model.Contract) (decimal.Decimal, bool)
}

// Flows writes recent flows newest-first, one line per flow, and returns
// the lines for forwarding to a notifier.
func Flows(ctx context.Context, w io.Writer, st *store.Store, namer Namer, limit int, direction model.FlowDirection, source model.FlowSource) ([]string, error) {
	flows, err := st.RecentFlows(ctx, limit, direction, source)
	if err != nil {
		return nil, err
	}
	if len(flows) == 0 {
		fmt.Fprintln(w, "No member flows found.")
		return nil, nil
	}

	dirLabel := "ANY"
	if direction != "" {
		dirLabel = strings.ToUpper(string(direction))
	}
	srcLabel := "ANY"
	if source != "" {
		srcLabel = string(source)
	}
	fmt.Fprintf(w, "Recent member flows (limit %d) direction=%s source=%s\n", limit, dirLabel, srcLabel)

	lines := make([]string, 0, len(flows))
	for _, f := range flows {
		line := FormatFlowLine(f, namer.Character(ctx, f.CharacterID))
		fmt.Fprintln(w, line)
		lines = append(lines, line)
	}
	return lines, nil
}

// Dashboard writes the value-flow summary: totals, net, and the implied
// share count at the configured share unit.
func Dashboard(ctx context.Context, w io.Writer, st *store.Store, shareUnit decimal.Decimal) error {
	in, out, err := st.FlowTotals(ctx)
	if err != nil {
		return err
	}
	net := in.Sub(out)
	shares := decimal.Zero
	if shareUnit.IsPositive() {
		shares = net.Div(shareUnit)
	}

	fmt.Fprintln(w, "=== Corp Value Flow Dashboard ===")
	fmt.Fprintf(w, "  Total value in:           %18s ISK\n", FormatISK(in))
	fmt.Fprintf(w, "  Total value out:          %18s ISK\n", FormatISK(out))
	fmt.Fprintf(w, "  %s\n", strings.Repeat("-", 41))
	fmt.Fprintf(w, "  Net value (in - out):     %18s ISK\n", FormatISK(net))
	fmt.Fprintf(w, "  Share unit:               %s ISK per share\n", formatGrouped(shareUnit, 0))
	fmt.Fprintf(w, "  Implied total shares:     %s\n", formatGrouped(shares, 4))
	fmt.Fprintln(w)
	return nil
}

// Donations writes recent donations newest-first with resolved names.
func Donations(ctx context.Context, w io.Writer, st *store.Store, namer Namer, limit int) error {
	donations, err := st.ListDonations(ctx, limit)
	if err != nil {
		return err
	}
	if len(donations) == 0 {
		fmt.Fprintln(w, "No donations found.")
		return nil
	}

	fmt.Fprintf(w, "%12s %-16s %12s %18s %9s  %s\n", "Journal", "Name", "CharID", "Amount(ISK)", "Processed", "Description")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, d := range donations {
		desc := d.Description
		if len(desc) > 40 {
			desc = desc[:40]
		}
		fmt.Fprintf(w, "%12d %-16s %12d %18s %9t  %s\n",
			d.JournalID, namer.Character(ctx, d.CharacterID), d.CharacterID,
			FormatISK(d.Amount), d.Processed, desc)
	}
	return nil
}

// Contracts writes recent contracts newest-first with their item
// manifests and, when a valuer is available, appraisal values. A nil
// valuer means no pricer key is configured.
func Contracts(ctx context.Context, w io.Writer, st *store.Store, namer Namer, valuer Valuer, limit int) error {
	contracts, err := st.ListContracts(ctx, limit)
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		fmt.Fprintln(w, "No contracts found.")
		return nil
	}

	for _, c := range contracts {
		fmt.Fprintln(w, strings.Repeat("=", 100))
		fmt.Fprintf(w, "Contract %d | Type: %s | Status: %s\n", c.ContractID, c.Type, c.Status)
		fmt.Fprintf(w, "  Title: %s\n", c.Title)
		fmt.Fprintf(w, "  Issued: %s by %s\n", c.DateIssued.UTC().Format("2006-01-02 15:04"), namer.Character(ctx, c.IssuerID))
		fmt.Fprintf(w, "  Price:  %s ISK   Reward: %s ISK\n", FormatISK(c.Price), FormatISK(c.Reward))

		items, err := st.ContractItems(ctx, c.ContractID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(w, "  Items: (none cached)")
		} else {
			fmt.Fprintln(w, "  Items:")
			for _, it := range items {
				flags := ""
				if it.IsSingleton {
					flags += " [singleton]"
				}
				if !it.IsIncluded {
					flags += " (not included)"
				}
				fmt.Fprintf(w, "    - %dx %s%s\n", it.Quantity, namer.Type(ctx, it.TypeID), flags)
			}
		}

		switch {
		case valuer == nil:
			fmt.Fprintln(w, "  Janice appraisal: (API key not configured)")
		default:
			if value, ok := valuer.Ensure(ctx, c); ok {
				fmt.Fprintln(w, "  Janice appraisal:")
				fmt.Fprintf(w, "    Immediate Split:  %s ISK\n", FormatISK(value))
			} else {
				fmt.Fprintln(w, "  Janice appraisal: (no data / failed)")
			}
		}
	}
	return nil
}
