package amqp

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func sampleState() core.AccountState {
	return core.AccountState{
		Balance: decimal.NewFromInt(100),
		Expenses: []core.Expense{
			{Subject: "Lunch", Description: "noodles", Category: core.Food, Date: core.NewDate(2024, 6, 1), Amount: decimal.RequireFromString("12.5")},
			{Subject: "Fuel", Category: core.Gas, Date: core.NewDate(2024, 6, 2), Amount: decimal.NewFromInt(40)},
		},
	}
}

func TestNewAccountEvent(t *testing.T) {
	state := sampleState()
	ev := NewAccountEvent(EventExpenseAdded, state).WithExpense(state.Expenses[1], 1)

	if _, err := uuid.Parse(ev.ID); err != nil {
		t.Errorf("ID %q is not a uuid: %v", ev.ID, err)
	}
	if time.Since(ev.OccurredAt) > time.Second {
		t.Error("OccurredAt should be recent")
	}
	if ev.Balance != "100" || ev.Remaining != "47.5" || ev.Count != 2 {
		t.Errorf("got balance=%s remaining=%s count=%d", ev.Balance, ev.Remaining, ev.Count)
	}
	if ev.Index == nil || *ev.Index != 1 {
		t.Errorf("Index = %v, want 1", ev.Index)
	}
	if ev.Expense == nil || ev.Expense.Subject != "Fuel" || ev.Expense.Expense != "40" {
		t.Errorf("Expense = %+v", ev.Expense)
	}
}

func TestAccountEvent_JSON(t *testing.T) {
	state := sampleState()
	ev := NewAccountEvent(EventAccountReset, core.ZeroState()).WithArchive(state.Expenses)

	raw, err := ev.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatal(err)
	}
	if _, ok := generic["balance"].(float64); !ok {
		t.Errorf("balance should be a JSON number, got %T", generic["balance"])
	}
	if _, ok := generic["expense"]; ok {
		t.Error("expense should be omitted when unset")
	}

	parsed, err := AccountEventFromJSON(raw)
	if err != nil {
		t.Fatalf("AccountEventFromJSON() error = %v", err)
	}
	if parsed.ID != ev.ID || parsed.Type != EventAccountReset {
		t.Errorf("parsed = %+v", parsed)
	}
	if !parsed.OccurredAt.Equal(ev.OccurredAt) {
		t.Errorf("OccurredAt = %v, want %v", parsed.OccurredAt, ev.OccurredAt)
	}

	archived, err := parsed.ArchivedExpenses()
	if err != nil {
		t.Fatalf("ArchivedExpenses() error = %v", err)
	}
	if len(archived) != 2 || !archived[0].Equal(state.Expenses[0]) || !archived[1].Equal(state.Expenses[1]) {
		t.Errorf("archived = %+v", archived)
	}
}

func TestAccountEvent_InvalidJSON(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		invalid bool
	}{
		{"not json", `{"id": 1`, false},
		{"missing id", `{"type":"expense.added"}`, true},
		{"unknown type", `{"id":"x","type":"expense.renamed"}`, true},
		{"huge amount", `{"id":"x","type":"balance.adjusted","balance":1,"remaining":1,"amount":1e20000000}`, true},
		{"huge balance", `{"id":"x","type":"account.reset","balance":1e-20000000,"remaining":0}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AccountEventFromJSON([]byte(tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrInvalidEvent) != tt.invalid {
				t.Errorf("errors.Is(ErrInvalidEvent) = %v, want %v", !tt.invalid, tt.invalid)
			}
		})
	}
}

func TestArchivedExpensesRejectsCorruptArchive(t *testing.T) {
	ev := &AccountEvent{ID: "x", Type: EventAccountReset}
	if got, err := ev.ArchivedExpenses(); err != nil || len(got) != 0 {
		t.Errorf("empty archive = %v, %v", got, err)
	}

	ev = NewAccountEvent(EventAccountReset, core.ZeroState()).WithArchive(sampleState().Expenses)
	ev.Archive[0].Category = "Rent"
	if _, err := ev.ArchivedExpenses(); err == nil {
		t.Error("expected error for unknown category")
	}

	ev = NewAccountEvent(EventAccountReset, core.ZeroState()).WithArchive(sampleState().Expenses)
	ev.Archive[0].Expense = "1e2000000"
	if _, err := ev.ArchivedExpenses(); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("oversized amount error = %v, want ErrInvalidAmount", err)
	}
}
