// Package sheets defines the outbound port for archiving exported expenses
// to a spreadsheet.
package sheets

import (
	"context"

	"tally/internal/core"
)

// ArchiveWriter appends exported expenses to a spreadsheet-like destination.
type ArchiveWriter interface {
	// AppendExpenses writes one row per expense and returns the range written.
	AppendExpenses(ctx context.Context, expenses []core.Expense) (ref string, err error)
}

// ArchiveReader lists what has been archived so far, oldest first.
type ArchiveReader interface {
	ReadArchive(ctx context.Context) ([]core.Expense, error)
}

// Header is the column row written above archived expenses.
var Header = []string{"Subject", "Description", "Category", "Date", "Expense"}
