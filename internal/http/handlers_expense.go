package http

import (
	"errors"
	"net/http"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

type expenseRow struct {
	ID          int64
	Title       string
	Description string
	Amount      string
	Category    string
	Date        string
}

type expenseFormView struct {
	page
	Expense expenseRow
	Today   string
}

type expenseListView struct {
	page
	Expenses  []expenseRow
	Total     string
	StartDate string
	EndDate   string
}

func toRow(e core.Expense) expenseRow {
	return expenseRow{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Category:    e.Category,
		Date:        e.Date.String(),
	}
}

func (s *Server) handleAddExpenseForm(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	s.render(w, r, "add_expense.html", expenseFormView{
		page:  page{Title: "Add Expense", Username: user.Username, Flash: s.popFlash(w, r)},
		Today: core.Today().String(),
	})
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	e, err := parseExpenseForm(r)
	if err == nil {
		_, err = s.ledger.Add(r.Context(), user.ID, e)
	}
	if err != nil {
		s.setFlash(w, "error", expenseErrorMessage(err))
		http.Redirect(w, r, "/add_expense", http.StatusFound)
		return
	}

	s.invalidateSummaries(user.ID)
	s.setFlash(w, "success", "Expense added.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleEditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	e, err := s.ledger.Get(r.Context(), user.ID, id)
	if err != nil {
		// Someone else's expense looks exactly like a missing one
		http.NotFound(w, r)
		return
	}

	s.render(w, r, "edit_expense.html", expenseFormView{
		page:    page{Title: "Edit Expense", Username: user.Username, Flash: s.popFlash(w, r)},
		Expense: toRow(e),
	})
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	e, err := parseExpenseForm(r)
	if err == nil {
		e.ID = id
		err = s.ledger.Edit(r.Context(), user.ID, e)
	}
	switch {
	case errors.Is(err, core.ErrExpenseNotFound), errors.Is(err, core.ErrNotOwner):
		http.NotFound(w, r)
		return
	case err != nil:
		s.setFlash(w, "error", expenseErrorMessage(err))
		http.Redirect(w, r, "/edit_expense/"+r.PathValue("id"), http.StatusFound)
		return
	}

	s.invalidateSummaries(user.ID)
	s.setFlash(w, "success", "Expense updated.")
	http.Redirect(w, r, "/view_expenses", http.StatusFound)
}

// handleDeleteExpenseConfirm answers GET delete links with a confirmation
// page; the deletion itself only happens on POST.
func (s *Server) handleDeleteExpenseConfirm(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	e, err := s.ledger.Get(r.Context(), user.ID, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	s.render(w, r, "confirm_delete.html", expenseFormView{
		page:    page{Title: "Delete Expense", Username: user.Username, Flash: s.popFlash(w, r)},
		Expense: toRow(e),
	})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	err := s.ledger.Delete(r.Context(), user.ID, id)
	switch {
	case errors.Is(err, core.ErrExpenseNotFound), errors.Is(err, core.ErrNotOwner):
		http.NotFound(w, r)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Failed to delete expense",
			log.FieldUserID, user.ID,
			log.FieldExpenseID, id,
			log.FieldError, err)
		s.setFlash(w, "error", "An error occurred. Please try again.")
		http.Redirect(w, r, "/view_expenses", http.StatusFound)
		return
	}

	s.invalidateSummaries(user.ID)
	s.setFlash(w, "success", "Expense deleted.")
	http.Redirect(w, r, "/view_expenses", http.StatusFound)
}

func (s *Server) handleViewExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	flash := s.popFlash(w, r)
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")

	dateRange, err := core.ParseRange(startDate, endDate)
	if errors.Is(err, core.ErrInvalidDateRange) {
		flash = &Flash{Kind: "error", Message: "Invalid date range. Showing all expenses."}
		dateRange = nil
		startDate, endDate = "", ""
	}

	expenses, err := s.ledger.List(r.Context(), user.ID, dateRange)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list expenses",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := expenseListView{
		page:      page{Title: "Expenses", Username: user.Username, Flash: flash},
		StartDate: startDate,
		EndDate:   endDate,
	}
	var total int64
	for _, e := range expenses {
		view.Expenses = append(view.Expenses, toRow(e))
		total += e.Amount.Cents
	}
	view.Total = core.Money{Cents: total}.String()

	s.render(w, r, "view_expenses.html", view)
}

// expenseErrorMessage translates validation errors into user-facing text
func expenseErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a positive number."
	case errors.Is(err, core.ErrInvalidDate):
		return "Date must be in YYYY-MM-DD format."
	case errors.Is(err, core.ErrEmptyCategory):
		return "Category is required."
	default:
		return "Could not save the expense: " + err.Error()
	}
}
