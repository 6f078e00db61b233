package services

import (
	"context"
	"path/filepath"
	"testing"

	"spendlog/internal/amqp"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestBudgetService_SetCeiling(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewBudgetService(repo, log.New(log.DefaultConfig()))

	user, err := repo.CreateUser(ctx, "alice@example.com", "alice", "hash")
	require.NoError(t, err)

	m, err := svc.SetCeiling(ctx, user.ID, "300")
	require.NoError(t, err)
	assert.Equal(t, int64(30000), m.Cents)

	got, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), got.Budget.Cents)

	// Zero ceiling is allowed, it just disables the alert
	m, err = svc.SetCeiling(ctx, user.ID, "0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Cents)

	_, err = svc.SetCeiling(ctx, user.ID, "-10")
	assert.ErrorIs(t, err, core.ErrInvalidBudget)

	_, err = svc.SetCeiling(ctx, user.ID, "abc")
	assert.ErrorIs(t, err, core.ErrInvalidBudget)
}

func TestReportProcessor_RefreshMonth(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	proc := NewReportProcessor(repo, log.New(log.DefaultConfig()))

	user, err := repo.CreateUser(ctx, "alice@example.com", "alice", "hash")
	require.NoError(t, err)

	_, err = repo.ImportExpenses(ctx, user.ID, []core.Expense{
		{Amount: core.Money{Cents: 100}, Category: "Food", Date: core.NewDate(2024, 1, 5)},
		{Amount: core.Money{Cents: 250}, Category: "Food", Date: core.NewDate(2024, 1, 20)},
	})
	require.NoError(t, err)

	require.NoError(t, proc.RefreshMonth(ctx, user.ID, "2024-01"))

	// Refreshing again after a change overwrites the same row
	_, err = repo.CreateExpense(ctx, core.Expense{
		OwnerID: user.ID, Amount: core.Money{Cents: 50}, Category: "Food", Date: core.NewDate(2024, 1, 25),
	})
	require.NoError(t, err)
	require.NoError(t, proc.RefreshMonth(ctx, user.ID, "2024-01"))

	assert.Error(t, proc.RefreshMonth(ctx, user.ID, "not-a-month"))
}

func TestReportProcessor_HandleExpenseChange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	proc := NewReportProcessor(repo, log.New(log.DefaultConfig()))

	user, err := repo.CreateUser(ctx, "alice@example.com", "alice", "hash")
	require.NoError(t, err)

	err = proc.HandleExpenseChange(ctx, amqp.NewExpenseChangeMessage(user.ID, "2024-03"))
	assert.NoError(t, err)

	assert.Error(t, proc.HandleExpenseChange(ctx, &amqp.ExpenseChangeMessage{UserID: 0, Month: "2024-03"}))
	assert.Error(t, proc.HandleExpenseChange(ctx, &amqp.ExpenseChangeMessage{UserID: user.ID, Month: ""}))
}

func TestReportProcessor_RefreshCurrentMonthAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	proc := NewReportProcessor(repo, log.New(log.DefaultConfig()))

	for _, u := range []struct{ email, name string }{
		{"alice@example.com", "alice"},
		{"bob@example.com", "bob"},
	} {
		_, err := repo.CreateUser(ctx, u.email, u.name, "hash")
		require.NoError(t, err)
	}

	assert.NoError(t, proc.RefreshCurrentMonthAll(ctx))
}
