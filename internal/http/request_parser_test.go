package http

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"spendlog/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpenseForm(t *testing.T) {
	makeReq := func(form url.Values) *core.Expense {
		r := httptest.NewRequest("POST", "/add_expense", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		e, err := parseExpenseForm(r)
		require.NoError(t, err)
		return &e
	}

	e := makeReq(url.Values{
		"title":       {"  Lunch  "},
		"description": {"team lunch"},
		"amount":      {"12,50"},
		"category":    {"Food"},
		"date":        {"2024-03-05"},
	})
	assert.Equal(t, "Lunch", e.Title, "title should be trimmed")
	assert.Equal(t, int64(1250), e.Amount.Cents, "comma decimals accepted")
	assert.Equal(t, "Food", e.Category)
	assert.Equal(t, "2024-03-05", e.Date.String())

	// Empty date defaults to today
	e = makeReq(url.Values{
		"amount":   {"5.00"},
		"category": {"Misc"},
	})
	assert.Equal(t, core.Today().String(), e.Date.String())
}

func TestParseExpenseFormErrors(t *testing.T) {
	makeErr := func(form url.Values) error {
		r := httptest.NewRequest("POST", "/add_expense", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err := parseExpenseForm(r)
		return err
	}

	assert.ErrorIs(t, makeErr(url.Values{"amount": {"abc"}, "category": {"Food"}}), core.ErrInvalidAmount)
	assert.ErrorIs(t, makeErr(url.Values{"amount": {"-5"}, "category": {"Food"}}), core.ErrInvalidAmount)
	assert.ErrorIs(t, makeErr(url.Values{"amount": {"5"}, "category": {"Food"}, "date": {"05/03/2024"}}), core.ErrInvalidDate)
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest("GET", "/edit_expense/42", nil)
	r.SetPathValue("id", "42")
	id, ok := pathID(r)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	r = httptest.NewRequest("GET", "/edit_expense/abc", nil)
	r.SetPathValue("id", "abc")
	_, ok = pathID(r)
	assert.False(t, ok)

	r = httptest.NewRequest("GET", "/edit_expense/-1", nil)
	r.SetPathValue("id", "-1")
	_, ok = pathID(r)
	assert.False(t, ok)
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "hello", sanitizeInput("  hello  "))
	assert.Equal(t, "ab", sanitizeInput("a\x00b"))
	assert.Equal(t, "a\tb", sanitizeInput("a\tb"))
}
