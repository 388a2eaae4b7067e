package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/store"
)

// EventType names what happened to the account.
type EventType string

const (
	EventExpenseAdded    EventType = "expense.added"
	EventExpenseDeleted  EventType = "expense.deleted"
	EventBalanceAdjusted EventType = "balance.adjusted"
	EventAccountReset    EventType = "account.reset"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventExpenseAdded, EventExpenseDeleted, EventBalanceAdjusted, EventAccountReset:
		return true
	default:
		return false
	}
}

var ErrInvalidEvent = errors.New("invalid account event")

// AccountEvent is published after every successful mutation. Balance,
// Remaining and Count describe the state after the change. Expenses use the
// same shape as the stored document.
type AccountEvent struct {
	ID         string                  `json:"id"`
	Type       EventType               `json:"type"`
	OccurredAt time.Time               `json:"occurred_at"`
	Balance    json.Number             `json:"balance"`
	Remaining  json.Number             `json:"remaining"`
	Count      int                     `json:"count"`
	Index      *int                    `json:"index,omitempty"`
	Amount     json.Number             `json:"amount,omitempty"`
	Expense    *store.DocumentExpense  `json:"expense,omitempty"`
	Archive    []store.DocumentExpense `json:"archive,omitempty"`
}

// NewAccountEvent creates an event of type t describing state.
func NewAccountEvent(t EventType, state core.AccountState) *AccountEvent {
	return &AccountEvent{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Balance:    json.Number(state.Balance.String()),
		Remaining:  json.Number(state.RemainingBalance().String()),
		Count:      len(state.Expenses),
	}
}

// WithExpense attaches the expense the event is about and its list position.
func (m *AccountEvent) WithExpense(e core.Expense, index int) *AccountEvent {
	doc := store.FromState(core.AccountState{Expenses: []core.Expense{e}})
	m.Expense = &doc.Expenses[0]
	m.Index = &index
	return m
}

// WithAmount records the balance adjustment amount.
func (m *AccountEvent) WithAmount(amount decimal.Decimal) *AccountEvent {
	m.Amount = json.Number(amount.String())
	return m
}

// WithArchive attaches the expenses that were exported before a reset.
func (m *AccountEvent) WithArchive(expenses []core.Expense) *AccountEvent {
	m.Archive = store.FromState(core.AccountState{Expenses: expenses}).Expenses
	return m
}

// ArchivedExpenses decodes the archive carried by a reset event.
func (m *AccountEvent) ArchivedExpenses() ([]core.Expense, error) {
	doc := store.Document{Balance: "0", Expenses: m.Archive}
	state, err := doc.State()
	if err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	return state.Expenses, nil
}

// ToJSON converts the message to JSON bytes
func (m *AccountEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AccountEventFromJSON decodes an event and rejects ones without an ID or
// with an unknown type.
func AccountEventFromJSON(data []byte) (*AccountEvent, error) {
	var msg AccountEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, msg.Type)
	}
	for _, n := range []json.Number{msg.Balance, msg.Remaining, msg.Amount} {
		if n == "" {
			continue
		}
		if _, err := core.DecodeAmount(n.String()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
	}
	return &msg, nil
}
