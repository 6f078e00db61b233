package services

import (
	"context"
	"fmt"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/storage"
	"spendlog/internal/tabular"
)

// LedgerService orchestrates expense operations across SQLite and AMQP.
// Every operation takes the acting user's id and refuses to touch expenses
// owned by anyone else.
type LedgerService struct {
	storage *storage.SQLiteRepository
	events  *amqp.Client
	logger  *log.Logger
}

func NewLedgerService(storage *storage.SQLiteRepository, events *amqp.Client, logger *log.Logger) *LedgerService {
	return &LedgerService{
		storage: storage,
		events:  events,
		logger:  logger.WithComponent(log.ComponentLedger),
	}
}

// Add validates and stores a new expense for the user
func (s *LedgerService) Add(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	e.OwnerID = userID
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense added",
		log.FieldUserID, userID,
		log.FieldExpenseID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, created.Amount.Cents)

	s.publishChange(ctx, userID, created.Date.MonthKey())
	return created, nil
}

// Get returns one of the user's expenses. Somebody else's expense id is
// indistinguishable from a missing one.
func (s *LedgerService) Get(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	return s.ownedExpense(ctx, userID, expenseID)
}

// Edit replaces the stored fields of one of the user's expenses
func (s *LedgerService) Edit(ctx context.Context, userID int64, e core.Expense) error {
	existing, err := s.ownedExpense(ctx, userID, e.ID)
	if err != nil {
		return err
	}

	e.OwnerID = userID
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense updated",
		log.FieldUserID, userID,
		log.FieldExpenseID, e.ID)

	s.publishChange(ctx, userID, existing.Date.MonthKey())
	if m := e.Date.MonthKey(); m != existing.Date.MonthKey() {
		// Moving an expense across months dirties both totals
		s.publishChange(ctx, userID, m)
	}
	return nil
}

// Delete removes one of the user's expenses
func (s *LedgerService) Delete(ctx context.Context, userID, expenseID int64) error {
	existing, err := s.ownedExpense(ctx, userID, expenseID)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	s.logger.InfoContext(ctx, "Expense deleted",
		log.FieldUserID, userID,
		log.FieldExpenseID, expenseID)

	s.publishChange(ctx, userID, existing.Date.MonthKey())
	return nil
}

// List returns the user's expenses, newest first, optionally limited to an
// inclusive date range.
func (s *LedgerService) List(ctx context.Context, userID int64, dateRange *core.Range) ([]core.Expense, error) {
	expenses, err := s.storage.ListExpenses(ctx, userID, dateRange)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Import stores all rows for the user in one transaction. The rows are
// validated up front; one bad row means nothing is written.
func (s *LedgerService) Import(ctx context.Context, userID int64, rows []tabular.Row) (int, error) {
	expenses := make([]core.Expense, 0, len(rows))
	for i, row := range rows {
		e := core.Expense{
			OwnerID:  userID,
			Title:    row.Title,
			Amount:   row.Amount,
			Category: row.Category,
			Date:     row.Date,
		}
		if err := e.Validate(); err != nil {
			return 0, &tabular.RowError{Line: i + 2, Err: err}
		}
		expenses = append(expenses, e)
	}

	n, err := s.storage.ImportExpenses(ctx, userID, expenses)
	if err != nil {
		return 0, fmt.Errorf("import expenses: %w", err)
	}

	s.logger.InfoContext(ctx, "Expenses imported",
		log.FieldUserID, userID,
		log.FieldRowCount, n)

	for _, month := range distinctMonths(expenses) {
		s.publishChange(ctx, userID, month)
	}
	return n, nil
}

func (s *LedgerService) ownedExpense(ctx context.Context, userID, expenseID int64) (core.Expense, error) {
	e, err := s.storage.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if e.OwnerID != userID {
		return core.Expense{}, core.ErrNotOwner
	}
	return e, nil
}

// publishChange notifies the report worker. Publish failures are logged and
// swallowed, the expense is already persisted locally.
func (s *LedgerService) publishChange(ctx context.Context, userID int64, month string) {
	if err := s.events.PublishExpenseChange(ctx, userID, month); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense change",
			log.FieldUserID, userID,
			log.FieldMonth, month,
			log.FieldError, err)
	}
}

func distinctMonths(expenses []core.Expense) []string {
	seen := make(map[string]bool)
	var months []string
	for _, e := range expenses {
		m := e.Date.MonthKey()
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	return months
}
