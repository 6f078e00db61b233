package core

import (
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar date; the time-of-day portion is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// User owns expenses and a monthly budget ceiling.
	User struct {
		ID           int64
		Email        string
		Username     string
		PasswordHash string
		Role         string
		Budget       Money // monthly ceiling, non-negative
		CreatedAt    time.Time
	}

	// Expense is owner-scoped: visible and mutable only by its owner.
	Expense struct {
		ID          int64
		OwnerID     int64
		Title       string
		Description string
		Amount      Money
		Category    string
		Date        Date
		CreatedAt   time.Time
	}

	// Report is a materialized monthly total for one user. It is written by
	// the report worker; nothing in the web app reads it yet.
	Report struct {
		ID         int64
		OwnerID    int64
		Month      string // "2006-01"
		TotalCents int64
		CreatedAt  time.Time
	}

	// Range is an inclusive calendar-date interval.
	Range struct {
		Start Date
		End   Date
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidDateRange  = errors.New("invalid date range")
	ErrInvalidBudget     = errors.New("invalid budget")
	ErrEmptyCategory     = errors.New("empty category")
	ErrExpenseNotFound   = errors.New("expense not found")
	ErrNotOwner          = errors.New("expense owned by another user")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrInvalidCredential = errors.New("invalid credentials")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a "YYYY-MM-DD" string. It also accepts a trailing
// time component, which CSV exports from other tools sometimes carry.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range []string{dateLayout, "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the "YYYY-MM" label used by report rows.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseRange builds an inclusive range from two "YYYY-MM-DD" strings.
// Both empty means no filter; a single bound filters open-endedly on that
// side. A supplied bound that does not parse, or an inverted pair, is
// reported instead of being silently dropped.
func ParseRange(start, end string) (*Range, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}
	var r Range
	if start != "" {
		s, err := ParseDate(start)
		if err != nil {
			return nil, ErrInvalidDateRange
		}
		r.Start = s
	}
	if end != "" {
		e, err := ParseDate(end)
		if err != nil {
			return nil, ErrInvalidDateRange
		}
		r.End = e
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start.Time) {
		return nil, ErrInvalidDateRange
	}
	return &r, nil
}

// Contains reports whether d falls within the inclusive range. A zero
// bound leaves that side open.
func (r Range) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if len(e.Title) > 100 {
		return errors.New("title too long (max 100 characters)")
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}
