package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/corpledger-dev/corpledger/internal/store"
)

// CharacterNamer resolves character ids for the dataset. *names.Resolver
// satisfies it.
type CharacterNamer interface {
	Character(ctx context.Context, characterID int64) string
}

// Dataset writes each member's net contributed value and the shares it
// implies at the given unit, descending by value, as CSV.
func Dataset(ctx context.Context, w io.Writer, st *store.Store, namer CharacterNamer, shareUnit decimal.Decimal) error {
	nets, err := st.NetByCharacter(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"character_id", "character_name", "net_value_isk", "estimated_shares"}); err != nil {
		return fmt.Errorf("writing dataset header: %w", err)
	}
	for _, n := range nets {
		shares := decimal.Zero
		if shareUnit.IsPositive() {
			shares = n.Net.Div(shareUnit)
		}
		record := []string{
			strconv.FormatInt(n.CharacterID, 10),
			namer.Character(ctx, n.CharacterID),
			n.Net.StringFixed(2),
			shares.StringFixed(6),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing dataset row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
