package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"tally/internal/core"
)

// Document is the persisted JSON shape:
//
//	{"balance": 100, "expenses": [{"subject": "...", "description": "...",
//	  "category": "Food", "date": "2024-01-01", "expense": 12.5}]}
//
// Amounts are JSON numbers, never strings.
type Document struct {
	Balance  json.Number       `json:"balance"`
	Expenses []DocumentExpense `json:"expenses"`
}

// DocumentExpense is one entry of Document.Expenses.
type DocumentExpense struct {
	Subject     string      `json:"subject"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Expense     json.Number `json:"expense"`
}

var (
	errMissingBalance = errors.New("missing balance")
	errQuotedNumber   = errors.New("amount must be a JSON number")
)

// FromState converts a state to its wire form.
func FromState(state core.AccountState) Document {
	doc := Document{
		Balance:  json.Number(state.Balance.String()),
		Expenses: make([]DocumentExpense, 0, len(state.Expenses)),
	}
	for _, e := range state.Expenses {
		doc.Expenses = append(doc.Expenses, DocumentExpense{
			Subject:     e.Subject,
			Description: e.Description,
			Category:    string(e.Category),
			Date:        e.Date.String(),
			Expense:     json.Number(e.Amount.String()),
		})
	}
	return doc
}

// State converts the wire form back, failing on anything that does not match
// the expected shape.
func (d Document) State() (core.AccountState, error) {
	if d.Balance == "" {
		return core.AccountState{}, errMissingBalance
	}
	balance, err := core.DecodeAmount(d.Balance.String())
	if err != nil {
		return core.AccountState{}, fmt.Errorf("balance: %w", err)
	}
	state := core.AccountState{Balance: balance, Expenses: make([]core.Expense, 0, len(d.Expenses))}
	for i, de := range d.Expenses {
		e, err := de.expense()
		if err != nil {
			return core.AccountState{}, fmt.Errorf("expense %d: %w", i, err)
		}
		state.Expenses = append(state.Expenses, e)
	}
	return state, nil
}

func (de DocumentExpense) expense() (core.Expense, error) {
	category := core.Category(de.Category)
	if !category.Valid() {
		return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidCategory, de.Category)
	}
	date, err := core.ParseDate(de.Date)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.DecodeAmount(de.Expense.String())
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Subject:     de.Subject,
		Description: de.Description,
		Category:    category,
		Date:        date,
		Amount:      amount,
	}, nil
}

// Encode serializes a state to document bytes.
func Encode(state core.AccountState) ([]byte, error) {
	return json.Marshal(FromState(state))
}

// rawAmounts mirrors the amount positions of a Document so their JSON
// tokens can be inspected. json.Number alone also accepts quoted numbers.
type rawAmounts struct {
	Balance  json.RawMessage `json:"balance"`
	Expenses []struct {
		Expense json.RawMessage `json:"expense"`
	} `json:"expenses"`
}

func isQuoted(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}

// Decode parses document bytes into a state.
func Decode(raw []byte) (core.AccountState, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.AccountState{}, fmt.Errorf("decode document: %w", err)
	}
	var amounts rawAmounts
	if err := json.Unmarshal(raw, &amounts); err != nil {
		return core.AccountState{}, fmt.Errorf("decode document: %w", err)
	}
	if isQuoted(amounts.Balance) {
		return core.AccountState{}, errQuotedNumber
	}
	for i, e := range amounts.Expenses {
		if isQuoted(e.Expense) {
			return core.AccountState{}, fmt.Errorf("expense %d: %w", i, errQuotedNumber)
		}
	}
	return doc.State()
}
