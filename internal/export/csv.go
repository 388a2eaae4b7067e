// Package export renders expenses as CSV text.
//
// Fields are joined with a bare comma and never quoted, so a subject or
// description that itself contains a comma shifts the columns of its row.
// Consumers that need strict CSV should not feed such values through here.
package export

import (
	"fmt"
	"io"
	"strings"

	"tally/internal/core"
)

const (
	Header      = "Subject,Description,Category,Date,Expense"
	Filename    = "expenses.csv"
	ContentType = "text/csv;charset=utf-8"
)

// Row renders one expense as a CSV line without a trailing newline.
func Row(e core.Expense) string {
	return strings.Join([]string{
		e.Subject,
		e.Description,
		e.Category.String(),
		e.Date.String(),
		e.Amount.String(),
	}, ",")
}

// CSV returns the header followed by one row per expense, separated by "\n"
// with no trailing newline.
func CSV(expenses []core.Expense) string {
	var b strings.Builder
	b.WriteString(Header)
	for _, e := range expenses {
		b.WriteByte('\n')
		b.WriteString(Row(e))
	}
	return b.String()
}

// WriteCSV writes CSV(expenses) to w.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	if _, err := io.WriteString(w, CSV(expenses)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// ContentDisposition is the header value that makes browsers save the body
// as name.
func ContentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
