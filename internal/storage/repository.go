package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spendlog/internal/core"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when a session token is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is a server-side login session keyed by an opaque token.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- users ---

func (r *SQLiteRepository) CreateUser(ctx context.Context, email, username, passwordHash string) (core.User, error) {
	var exists int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&exists); err != nil {
		return core.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists > 0 {
		return core.User{}, core.ErrDuplicateEmail
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&exists); err != nil {
		return core.User{}, fmt.Errorf("check username: %w", err)
	}
	if exists > 0 {
		return core.User{}, core.ErrDuplicateUsername
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, username, password_hash) VALUES (?, ?, ?)`,
		email, username, passwordHash)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("user id: %w", err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, role, budget_cents, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, role, budget_cents, created_at
		 FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, username, password_hash, role, budget_cents, created_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, userID int64, cents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET budget_cents = ? WHERE id = ?`, cents, userID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget rows: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListUserIDs returns the ids of all registered users.
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Budget.Cents, &u.CreatedAt)
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, title, description, amount_cents, category, expense_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.OwnerID, e.Title, e.Description, e.Amount.Cents, e.Category, e.Date.String())
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	return r.GetExpense(ctx, id)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, amount_cents, category, expense_date, created_at
		 FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	return e, err
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET title = ?, description = ?, amount_cents = ?, category = ?, expense_date = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.Amount.Cents, e.Category, e.Date.String(), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrExpenseNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows: %w", err)
	}
	if n == 0 {
		return core.ErrExpenseNotFound
	}
	return nil
}

// ListExpenses returns a user's expenses, newest first. A nil range means
// no date filter; the range bounds are inclusive and a zero bound leaves
// that side open.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, dateRange *core.Range) ([]core.Expense, error) {
	query := `SELECT id, user_id, title, description, amount_cents, category, expense_date, created_at
		 FROM expenses WHERE user_id = ?`
	args := []any{userID}
	if dateRange != nil {
		if !dateRange.Start.IsZero() {
			query += ` AND expense_date >= ?`
			args = append(args, dateRange.Start.String())
		}
		if !dateRange.End.IsZero() {
			query += ` AND expense_date <= ?`
			args = append(args, dateRange.End.String())
		}
	}
	query += ` ORDER BY expense_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ImportExpenses inserts all rows in a single transaction. Either every
// row lands or none do.
func (r *SQLiteRepository) ImportExpenses(ctx context.Context, userID int64, expenses []core.Expense) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO expenses (user_id, title, description, amount_cents, category, expense_date)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, e := range expenses {
		if _, err := stmt.ExecContext(ctx,
			userID, e.Title, e.Description, e.Amount.Cents, e.Category, e.Date.String()); err != nil {
			return 0, fmt.Errorf("import row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(expenses), nil
}

// SumMonth totals a user's expenses for a "YYYY-MM" month.
func (r *SQLiteRepository) SumMonth(ctx context.Context, userID int64, month string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE user_id = ? AND expense_date LIKE ? || '-%'`, userID, month).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum month: %w", err)
	}
	return total, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanExpense(row scannable) (core.Expense, error) {
	var (
		e       core.Expense
		rawDate string
	)
	err := row.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.Amount.Cents, &e.Category, &rawDate, &e.CreatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(rawDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", rawDate, err)
	}
	e.Date = d
	return e, nil
}

// --- reports ---

// UpsertReport records the materialized monthly total for a user.
func (r *SQLiteRepository) UpsertReport(ctx context.Context, userID int64, month string, totalCents int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (user_id, month, total_cents) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, month) DO UPDATE SET total_cents = excluded.total_cents, created_at = CURRENT_TIMESTAMP`,
		userID, month, totalCents)
	if err != nil {
		return fmt.Errorf("upsert report: %w", err)
	}
	return nil
}

// --- sessions ---

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession looks up a live session. Expired tokens are treated as unknown.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (Session, error) {
	var s Session
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if time.Now().After(s.ExpiresAt) {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *SQLiteRepository) RenewSession(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE token = ?`, expiresAt.UTC(), token)
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how
// many were deleted.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
