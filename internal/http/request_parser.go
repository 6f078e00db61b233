package http

import (
	"net/http"
	"strconv"
	"strings"

	"spendlog/internal/core"
)

// parseExpenseForm builds an expense from the add/edit form fields. An empty
// date means today; the amount accepts both dot and comma decimals.
func parseExpenseForm(r *http.Request) (core.Expense, error) {
	if err := r.ParseForm(); err != nil {
		return core.Expense{}, err
	}

	var e core.Expense
	e.Title = sanitizeInput(r.FormValue("title"))
	e.Description = sanitizeInput(r.FormValue("description"))
	e.Category = sanitizeInput(r.FormValue("category"))

	cents, err := core.ParseDecimalToCents(r.FormValue("amount"))
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Money{Cents: cents}

	rawDate := strings.TrimSpace(r.FormValue("date"))
	if rawDate == "" {
		e.Date = core.Today()
	} else {
		d, err := core.ParseDate(rawDate)
		if err != nil {
			return core.Expense{}, err
		}
		e.Date = d
	}

	return e, nil
}

// pathID reads the {id} path segment of an expense route
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}
