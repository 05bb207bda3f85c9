package google

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	"github.com/shopspring/decimal"
)

func formatRow(r ports.Row) []any {
	return []any{r.ID, r.Date.String(), r.Description, r.Category, string(r.Type), r.Amount.String()}
}

// parseRow converts one values row (as returned by Sheets API) back into a
// Row. Header rows and cleared rows do not parse.
func parseRow(values []any) (ports.Row, bool) {
	cols := toStrings(values)
	if len(cols) < 6 || cols[0] == "" {
		return ports.Row{}, false
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return ports.Row{}, false
	}
	typ := core.TransactionType(strings.ToLower(cols[4]))
	if !typ.IsValid() {
		return ports.Row{}, false
	}
	amount, ok := parseAmount(cols[5])
	if !ok {
		return ports.Row{}, false
	}
	return ports.Row{
		ID:          cols[0],
		Date:        date,
		Description: cols[2],
		Category:    cols[3],
		Type:        typ,
		Amount:      amount,
	}, true
}

// parseAmount accepts "1234.5", "1234,5" and "1,234.50".
func parseAmount(s string) (core.Money, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Zero, false
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Zero, false
	}
	return core.Money{Decimal: d}, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
