package google

import (
	"fmt"
	"strings"

	"tally/internal/core"
	ports "tally/internal/sheets"
)

// toRows converts expenses to sheet rows. The amount is sent as a number so
// the sheet can sum the column.
func toRows(expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		amount, _ := e.Amount.Float64()
		rows = append(rows, []any{e.Subject, e.Description, e.Category.String(), e.Date.String(), amount})
	}
	return rows
}

func headerRow() []any {
	row := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		row[i] = h
	}
	return row
}

// fromRows parses rows previously written by toRows, skipping the header and
// blank rows.
func fromRows(values [][]any) ([]core.Expense, error) {
	var out []core.Expense
	for i, raw := range values {
		row := toStrings(raw)
		if len(row) == 0 || strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		if strings.EqualFold(safeGet(row, 0), ports.Header[0]) && strings.EqualFold(safeGet(row, 4), ports.Header[4]) {
			continue
		}
		category, err := core.ParseCategory(safeGet(row, 2))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		date, err := core.ParseDate(safeGet(row, 3))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.DecodeAmount(safeGet(row, 4))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, core.Expense{
			Subject:     safeGet(row, 0),
			Description: safeGet(row, 1),
			Category:    category,
			Date:        date,
			Amount:      amount,
		})
	}
	return out, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
