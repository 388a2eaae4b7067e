// Package memory is an in-process sheets.ArchiveWriter, used when no
// spreadsheet is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tally/internal/core"
	ports "tally/internal/sheets"
)

type Archive struct {
	mu    sync.Mutex
	items []core.Expense
}

var (
	_ ports.ArchiveWriter = (*Archive)(nil)
	_ ports.ArchiveReader = (*Archive)(nil)
)

func New() *Archive {
	return &Archive{}
}

// AppendExpenses stores the expenses and returns a synthetic range reference.
func (a *Archive) AppendExpenses(_ context.Context, expenses []core.Expense) (string, error) {
	for _, e := range expenses {
		if err := e.Validate(); err != nil {
			return "", err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	start := len(a.items) + 1
	a.items = append(a.items, expenses...)
	return fmt.Sprintf("mem:%d-%d", start, len(a.items)), nil
}

// Expenses returns a copy of everything archived so far.
func (a *Archive) Expenses() []core.Expense {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Expense, len(a.items))
	copy(out, a.items)
	return out
}

// ReadArchive is Expenses behind the ArchiveReader port.
func (a *Archive) ReadArchive(context.Context) ([]core.Expense, error) {
	return a.Expenses(), nil
}
