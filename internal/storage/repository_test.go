package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"spendlog/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite provides a test suite for database operations
type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
}

// SetupTest runs before each test
func (suite *RepositoryTestSuite) SetupTest() {
	dbPath := filepath.Join(suite.T().TempDir(), "test.db")
	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(suite.T(), err, "failed to create test database")
	suite.repo = repo
	suite.ctx = context.Background()
}

// TearDownTest runs after each test
func (suite *RepositoryTestSuite) TearDownTest() {
	if suite.repo != nil {
		suite.repo.Close()
	}
}

func (suite *RepositoryTestSuite) createUser(email, username string) core.User {
	user, err := suite.repo.CreateUser(suite.ctx, email, username, "hash")
	require.NoError(suite.T(), err)
	return user
}

func (suite *RepositoryTestSuite) TestCreateUser() {
	user := suite.createUser("alice@example.com", "alice")

	assert.NotZero(suite.T(), user.ID)
	assert.Equal(suite.T(), "alice@example.com", user.Email)
	assert.Equal(suite.T(), "alice", user.Username)
	assert.Equal(suite.T(), "user", user.Role)
	assert.Equal(suite.T(), int64(0), user.Budget.Cents)
}

func (suite *RepositoryTestSuite) TestCreateUserDuplicates() {
	suite.createUser("alice@example.com", "alice")

	_, err := suite.repo.CreateUser(suite.ctx, "alice@example.com", "other", "hash")
	assert.ErrorIs(suite.T(), err, core.ErrDuplicateEmail)

	_, err = suite.repo.CreateUser(suite.ctx, "other@example.com", "alice", "hash")
	assert.ErrorIs(suite.T(), err, core.ErrDuplicateUsername)
}

func (suite *RepositoryTestSuite) TestGetUserByUsername() {
	created := suite.createUser("alice@example.com", "alice")

	user, err := suite.repo.GetUserByUsername(suite.ctx, "alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, user.ID)

	_, err = suite.repo.GetUserByUsername(suite.ctx, "nobody")
	assert.Error(suite.T(), err)
}

func (suite *RepositoryTestSuite) TestGetUserByEmail() {
	created := suite.createUser("alice@example.com", "alice")

	user, err := suite.repo.GetUserByEmail(suite.ctx, "alice@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, user.ID)

	_, err = suite.repo.GetUserByEmail(suite.ctx, "nobody@example.com")
	assert.Error(suite.T(), err)
}

func (suite *RepositoryTestSuite) TestUpdateBudget() {
	user := suite.createUser("alice@example.com", "alice")

	err := suite.repo.UpdateBudget(suite.ctx, user.ID, 30000)
	require.NoError(suite.T(), err)

	updated, err := suite.repo.GetUserByID(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(30000), updated.Budget.Cents)
}

func (suite *RepositoryTestSuite) TestCreateAndGetExpense() {
	user := suite.createUser("alice@example.com", "alice")

	created, err := suite.repo.CreateExpense(suite.ctx, core.Expense{
		OwnerID:  user.ID,
		Title:    "Groceries",
		Amount:   core.Money{Cents: 4250},
		Category: "Food",
		Date:     core.NewDate(2024, 3, 15),
	})
	require.NoError(suite.T(), err)
	assert.NotZero(suite.T(), created.ID)

	got, err := suite.repo.GetExpense(suite.ctx, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Groceries", got.Title)
	assert.Equal(suite.T(), int64(4250), got.Amount.Cents)
	assert.Equal(suite.T(), "2024-03-15", got.Date.String())
}

func (suite *RepositoryTestSuite) TestGetExpenseNotFound() {
	_, err := suite.repo.GetExpense(suite.ctx, 9999)
	assert.ErrorIs(suite.T(), err, core.ErrExpenseNotFound)
}

func (suite *RepositoryTestSuite) TestUpdateExpense() {
	user := suite.createUser("alice@example.com", "alice")
	created, err := suite.repo.CreateExpense(suite.ctx, core.Expense{
		OwnerID:  user.ID,
		Title:    "Lunch",
		Amount:   core.Money{Cents: 1200},
		Category: "Food",
		Date:     core.NewDate(2024, 3, 15),
	})
	require.NoError(suite.T(), err)

	created.Title = "Dinner"
	created.Amount = core.Money{Cents: 2500}
	require.NoError(suite.T(), suite.repo.UpdateExpense(suite.ctx, created))

	got, err := suite.repo.GetExpense(suite.ctx, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Dinner", got.Title)
	assert.Equal(suite.T(), int64(2500), got.Amount.Cents)

	missing := created
	missing.ID = 9999
	assert.ErrorIs(suite.T(), suite.repo.UpdateExpense(suite.ctx, missing), core.ErrExpenseNotFound)
}

func (suite *RepositoryTestSuite) TestDeleteExpense() {
	user := suite.createUser("alice@example.com", "alice")
	created, err := suite.repo.CreateExpense(suite.ctx, core.Expense{
		OwnerID:  user.ID,
		Amount:   core.Money{Cents: 100},
		Category: "Misc",
		Date:     core.NewDate(2024, 1, 1),
	})
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.repo.DeleteExpense(suite.ctx, created.ID))
	assert.ErrorIs(suite.T(), suite.repo.DeleteExpense(suite.ctx, created.ID), core.ErrExpenseNotFound)
}

func (suite *RepositoryTestSuite) TestListExpensesOrderAndRange() {
	user := suite.createUser("alice@example.com", "alice")
	dates := []core.Date{
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 3, 10),
		core.NewDate(2024, 3, 20),
	}
	for _, d := range dates {
		_, err := suite.repo.CreateExpense(suite.ctx, core.Expense{
			OwnerID:  user.ID,
			Amount:   core.Money{Cents: 1000},
			Category: "Misc",
			Date:     d,
		})
		require.NoError(suite.T(), err)
	}

	all, err := suite.repo.ListExpenses(suite.ctx, user.ID, nil)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), all, 3)
	// Newest first
	assert.Equal(suite.T(), "2024-03-20", all[0].Date.String())
	assert.Equal(suite.T(), "2024-03-01", all[2].Date.String())

	// Bounds are inclusive
	filtered, err := suite.repo.ListExpenses(suite.ctx, user.ID,
		&core.Range{Start: core.NewDate(2024, 3, 1), End: core.NewDate(2024, 3, 10)})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), filtered, 2)

	// A zero bound leaves that side open
	fromOnly, err := suite.repo.ListExpenses(suite.ctx, user.ID,
		&core.Range{Start: core.NewDate(2024, 3, 10)})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), fromOnly, 2)

	untilOnly, err := suite.repo.ListExpenses(suite.ctx, user.ID,
		&core.Range{End: core.NewDate(2024, 3, 1)})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), untilOnly, 1)
}

func (suite *RepositoryTestSuite) TestListExpensesScopedToUser() {
	alice := suite.createUser("alice@example.com", "alice")
	bob := suite.createUser("bob@example.com", "bob")

	_, err := suite.repo.CreateExpense(suite.ctx, core.Expense{
		OwnerID:  alice.ID,
		Amount:   core.Money{Cents: 1000},
		Category: "Misc",
		Date:     core.NewDate(2024, 1, 1),
	})
	require.NoError(suite.T(), err)

	mine, err := suite.repo.ListExpenses(suite.ctx, bob.ID, nil)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), mine)
}

func (suite *RepositoryTestSuite) TestImportExpenses() {
	user := suite.createUser("alice@example.com", "alice")

	n, err := suite.repo.ImportExpenses(suite.ctx, user.ID, []core.Expense{
		{Amount: core.Money{Cents: 100}, Category: "Food", Date: core.NewDate(2024, 1, 1)},
		{Amount: core.Money{Cents: 200}, Category: "Travel", Date: core.NewDate(2024, 1, 2)},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, n)

	all, err := suite.repo.ListExpenses(suite.ctx, user.ID, nil)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)
}

func (suite *RepositoryTestSuite) TestSumMonth() {
	user := suite.createUser("alice@example.com", "alice")
	_, err := suite.repo.ImportExpenses(suite.ctx, user.ID, []core.Expense{
		{Amount: core.Money{Cents: 100}, Category: "Food", Date: core.NewDate(2024, 1, 5)},
		{Amount: core.Money{Cents: 250}, Category: "Food", Date: core.NewDate(2024, 1, 25)},
		{Amount: core.Money{Cents: 999}, Category: "Food", Date: core.NewDate(2024, 2, 1)},
	})
	require.NoError(suite.T(), err)

	total, err := suite.repo.SumMonth(suite.ctx, user.ID, "2024-01")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(350), total)

	empty, err := suite.repo.SumMonth(suite.ctx, user.ID, "2023-12")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), empty)
}

func (suite *RepositoryTestSuite) TestUpsertReport() {
	user := suite.createUser("alice@example.com", "alice")

	require.NoError(suite.T(), suite.repo.UpsertReport(suite.ctx, user.ID, "2024-01", 350))
	// Second write for the same month replaces the total
	require.NoError(suite.T(), suite.repo.UpsertReport(suite.ctx, user.ID, "2024-01", 500))

	var total int64
	err := suite.repo.db.QueryRowContext(suite.ctx,
		`SELECT total_cents FROM reports WHERE user_id = ? AND month = ?`, user.ID, "2024-01").Scan(&total)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(500), total)
}

func (suite *RepositoryTestSuite) TestSessionLifecycle() {
	user := suite.createUser("alice@example.com", "alice")

	err := suite.repo.CreateSession(suite.ctx, "tok-1", user.ID, time.Now().Add(time.Hour))
	require.NoError(suite.T(), err)

	s, err := suite.repo.GetSession(suite.ctx, "tok-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), user.ID, s.UserID)

	require.NoError(suite.T(), suite.repo.DeleteSession(suite.ctx, "tok-1"))
	_, err = suite.repo.GetSession(suite.ctx, "tok-1")
	assert.ErrorIs(suite.T(), err, ErrSessionNotFound)
}

func (suite *RepositoryTestSuite) TestExpiredSessions() {
	user := suite.createUser("alice@example.com", "alice")

	require.NoError(suite.T(), suite.repo.CreateSession(suite.ctx, "dead", user.ID, time.Now().Add(-time.Minute)))
	require.NoError(suite.T(), suite.repo.CreateSession(suite.ctx, "live", user.ID, time.Now().Add(time.Hour)))

	// Expired tokens are invisible even before cleanup runs
	_, err := suite.repo.GetSession(suite.ctx, "dead")
	assert.ErrorIs(suite.T(), err, ErrSessionNotFound)

	deleted, err := suite.repo.DeleteExpiredSessions(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), deleted)

	_, err = suite.repo.GetSession(suite.ctx, "live")
	assert.NoError(suite.T(), err)
}

func (suite *RepositoryTestSuite) TestRenewSession() {
	user := suite.createUser("alice@example.com", "alice")
	require.NoError(suite.T(), suite.repo.CreateSession(suite.ctx, "tok", user.ID, time.Now().Add(time.Minute)))

	newExpiry := time.Now().Add(2 * time.Hour)
	require.NoError(suite.T(), suite.repo.RenewSession(suite.ctx, "tok", newExpiry))

	s, err := suite.repo.GetSession(suite.ctx, "tok")
	require.NoError(suite.T(), err)
	assert.WithinDuration(suite.T(), newExpiry, s.ExpiresAt, time.Second)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
