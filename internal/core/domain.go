package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Food           Category = "Food"
	Transportation Category = "Transportation"
	Gas            Category = "Gas"
	Shopping       Category = "Shopping"

	// DefaultCategory is preselected in the entry form.
	DefaultCategory = Food

	// DateLayout is the calendar-date text form used everywhere (YYYY-MM-DD).
	DateLayout = "2006-01-02"
)

type (
	Category string

	Date struct {
		time.Time
	}

	// Expense is an immutable record. It has no identity of its own: callers
	// address it by its position in AccountState.Expenses.
	Expense struct {
		Subject     string
		Description string
		Category    Category
		Date        Date
		Amount      decimal.Decimal
	}

	// AccountState is the whole persisted document. The remaining balance is
	// always derived, never stored.
	AccountState struct {
		Balance  decimal.Decimal
		Expenses []Expense
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
	ErrEmptySubject    = errors.New("empty subject")
	ErrIndexOutOfRange = errors.New("expense index out of range")
)

// Categories returns the selectable categories in display order.
func Categories() []Category {
	return []Category{Food, Transportation, Gas, Shopping}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Food, Transportation, Gas, Shopping:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory matches s case-insensitively against the known categories and
// returns the canonical spelling.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Subject) == "" {
		return ErrEmptySubject
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(e.Category))
	}
	return e.Date.Validate()
}

// ZeroState is the state of a profile that never saved anything, and the
// state left behind by export-and-reset.
func ZeroState() AccountState {
	return AccountState{Balance: decimal.Zero, Expenses: []Expense{}}
}

// TotalExpenses sums every expense amount.
func (s AccountState) TotalExpenses() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// RemainingBalance returns Balance minus the sum of all expenses.
func (s AccountState) RemainingBalance() decimal.Decimal {
	return s.Balance.Sub(s.TotalExpenses())
}

// Clone returns a copy whose expense slice does not alias s.
func (s AccountState) Clone() AccountState {
	out := AccountState{Balance: s.Balance, Expenses: make([]Expense, len(s.Expenses))}
	copy(out.Expenses, s.Expenses)
	return out
}

// WithExpense returns a new state with e appended.
func (s AccountState) WithExpense(e Expense) AccountState {
	out := AccountState{Balance: s.Balance, Expenses: make([]Expense, 0, len(s.Expenses)+1)}
	out.Expenses = append(out.Expenses, s.Expenses...)
	out.Expenses = append(out.Expenses, e)
	return out
}

// WithoutExpense returns a new state with the expense at index removed; the
// relative order of the others is kept.
func (s AccountState) WithoutExpense(index int) (AccountState, error) {
	if index < 0 || index >= len(s.Expenses) {
		return s, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s.Expenses))
	}
	out := AccountState{Balance: s.Balance, Expenses: make([]Expense, 0, len(s.Expenses)-1)}
	out.Expenses = append(out.Expenses, s.Expenses[:index]...)
	out.Expenses = append(out.Expenses, s.Expenses[index+1:]...)
	return out, nil
}

// WithBalanceAdjusted returns a new state whose balance is increased by amount
// (a negative amount lowers it).
func (s AccountState) WithBalanceAdjusted(amount decimal.Decimal) AccountState {
	out := s.Clone()
	out.Balance = s.Balance.Add(amount)
	return out
}

// Latest returns up to n expenses from the head of the list.
func (s AccountState) Latest(n int) []Expense {
	if n > len(s.Expenses) {
		n = len(s.Expenses)
	}
	if n < 0 {
		n = 0
	}
	out := make([]Expense, n)
	copy(out, s.Expenses[:n])
	return out
}

// Equal compares two states numerically; 10.50 and 10.5 are the same amount.
func (s AccountState) Equal(o AccountState) bool {
	if !s.Balance.Equal(o.Balance) || len(s.Expenses) != len(o.Expenses) {
		return false
	}
	for i := range s.Expenses {
		if !s.Expenses[i].Equal(o.Expenses[i]) {
			return false
		}
	}
	return true
}

func (e Expense) Equal(o Expense) bool {
	return e.Subject == o.Subject &&
		e.Description == o.Description &&
		e.Category == o.Category &&
		e.Date.Equal(o.Date.Time) &&
		e.Amount.Equal(o.Amount)
}
