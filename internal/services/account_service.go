package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/export"
	"tally/internal/log"
	"tally/internal/store"
)

// LatestCount is how many expenses the dashboard lists.
const LatestCount = 5

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *amqp.AccountEvent) error
}

// Summary is the dashboard view of the account.
type Summary struct {
	Balance   decimal.Decimal
	Total     decimal.Decimal
	Remaining decimal.Decimal
	Breakdown core.Breakdown
	Shares    []core.CategoryShare
	Latest    []core.Expense
	Count     int
}

// NewSummary derives the dashboard view from a state.
func NewSummary(state core.AccountState) Summary {
	b := core.Aggregate(state.Expenses)
	return Summary{
		Balance:   state.Balance,
		Total:     b.Total,
		Remaining: state.Balance.Sub(b.Total),
		Breakdown: b,
		Shares:    b.Shares(),
		Latest:    state.Latest(LatestCount),
		Count:     len(state.Expenses),
	}
}

// AccountService owns the load, mutate and save cycle for the account.
// Operations are serialized within the process; a second process sharing the
// same backend is not coordinated with and the last save wins.
type AccountService struct {
	mu        sync.Mutex
	store     store.Store
	publisher EventPublisher
	logger    *log.Logger
}

// NewAccountService wires the service. publisher may be nil.
func NewAccountService(st store.Store, publisher EventPublisher, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AccountService{
		store:     st,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAccount),
	}
}

// State returns the current account state.
func (s *AccountService) State(ctx context.Context) (core.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

// Summary returns the dashboard view of the current state.
func (s *AccountService) Summary(ctx context.Context) (Summary, error) {
	state, err := s.State(ctx)
	if err != nil {
		return Summary{}, err
	}
	return NewSummary(state), nil
}

// AddExpense validates e and appends it to the list.
func (s *AccountService) AddExpense(ctx context.Context, e core.Expense) (core.AccountState, error) {
	if err := e.Validate(); err != nil {
		return core.AccountState{}, fmt.Errorf("add expense: %w", err)
	}

	next, err := s.mutate(ctx, func(state core.AccountState) (core.AccountState, error) {
		return state.WithExpense(e), nil
	})
	if err != nil {
		return core.AccountState{}, fmt.Errorf("add expense: %w", err)
	}

	s.logger.LogFields(ctx, slog.LevelInfo, "Expense added",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithExpense(e.Subject, e.Category.String(), e.Amount.String(), e.Date.String()).
			WithAccount(next.Balance.String(), next.RemainingBalance().String(), len(next.Expenses)))

	s.publish(ctx, amqp.NewAccountEvent(amqp.EventExpenseAdded, next).WithExpense(e, len(next.Expenses)-1))
	return next, nil
}

// DeleteExpense removes the expense at index. Indices of later expenses
// shift down by one.
func (s *AccountService) DeleteExpense(ctx context.Context, index int) (core.AccountState, error) {
	var removed core.Expense
	next, err := s.mutate(ctx, func(state core.AccountState) (core.AccountState, error) {
		out, err := state.WithoutExpense(index)
		if err == nil {
			removed = state.Expenses[index]
		}
		return out, err
	})
	if err != nil {
		return core.AccountState{}, fmt.Errorf("delete expense: %w", err)
	}

	s.logger.LogFields(ctx, slog.LevelInfo, "Expense deleted",
		log.NewFields().
			WithOperation(log.OpDelete).
			With(log.FieldIndex, index).
			WithExpense(removed.Subject, removed.Category.String(), removed.Amount.String(), removed.Date.String()).
			WithAccount(next.Balance.String(), next.RemainingBalance().String(), len(next.Expenses)))

	s.publish(ctx, amqp.NewAccountEvent(amqp.EventExpenseDeleted, next).WithExpense(removed, index))
	return next, nil
}

// AdjustBalance adds amount (possibly negative) to the balance.
func (s *AccountService) AdjustBalance(ctx context.Context, amount decimal.Decimal) (core.AccountState, error) {
	next, err := s.mutate(ctx, func(state core.AccountState) (core.AccountState, error) {
		return state.WithBalanceAdjusted(amount), nil
	})
	if err != nil {
		return core.AccountState{}, fmt.Errorf("adjust balance: %w", err)
	}

	s.logger.LogFields(ctx, slog.LevelInfo, "Balance adjusted",
		log.NewFields().
			WithOperation(log.OpAdjust).
			With(log.FieldAmount, amount.String()).
			WithAccount(next.Balance.String(), next.RemainingBalance().String(), len(next.Expenses)))

	s.publish(ctx, amqp.NewAccountEvent(amqp.EventBalanceAdjusted, next).WithAmount(amount))
	return next, nil
}

// Export writes the expense list as CSV and returns the number of rows.
func (s *AccountService) Export(ctx context.Context, w io.Writer) (int, error) {
	state, err := s.State(ctx)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	if err := export.WriteCSV(w, state.Expenses); err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	s.logger.InfoContext(ctx, "Expenses exported", log.FieldOperation, log.OpExport, log.FieldCount, len(state.Expenses))
	return len(state.Expenses), nil
}

// ExportAndReset writes the CSV and then replaces the account with the zero
// state. The store is left untouched if writing the CSV fails.
func (s *AccountService) ExportAndReset(ctx context.Context, w io.Writer) (int, error) {
	s.mu.Lock()
	state, err := s.store.Load(ctx)
	if err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("export and reset: %w", err)
	}
	if err := export.WriteCSV(w, state.Expenses); err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("export and reset: %w", err)
	}
	zero := core.ZeroState()
	if err := s.store.Save(ctx, zero); err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("export and reset: %w", err)
	}
	s.mu.Unlock()

	s.logger.LogFields(ctx, slog.LevelInfo, "Account exported and reset",
		log.NewFields().
			WithOperation(log.OpReset).
			With(log.FieldCount, len(state.Expenses)).
			With(log.FieldBalance, state.Balance.String()))

	s.publish(ctx, amqp.NewAccountEvent(amqp.EventAccountReset, zero).WithArchive(state.Expenses))
	return len(state.Expenses), nil
}

func (s *AccountService) mutate(ctx context.Context, fn func(core.AccountState) (core.AccountState, error)) (core.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if err != nil {
		return core.AccountState{}, err
	}
	next, err := fn(state)
	if err != nil {
		return core.AccountState{}, err
	}
	if err := s.store.Save(ctx, next); err != nil {
		return core.AccountState{}, err
	}
	return next, nil
}

// publish never fails the caller; the change is already saved.
func (s *AccountService) publish(ctx context.Context, ev *amqp.AccountEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.logger.LogFields(ctx, slog.LevelWarn, "Failed to publish account event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err).
				With(log.FieldEventID, ev.ID).
				With(log.FieldEventType, string(ev.Type)))
	}
}

// Close closes the publisher when it holds a connection.
func (s *AccountService) Close() error {
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
