package http

import (
	"errors"
	"net/http"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

type categoryRow struct {
	Name   string
	Amount string
}

type dashboardView struct {
	page
	Total      string
	Count      int
	HasBudget  bool
	Budget     string
	OverBudget bool
	OverBy     string
	Categories []categoryRow
	StartDate  string
	EndDate    string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	flash := s.popFlash(w, r)
	// FormValue covers both the GET query string and the posted filter form
	startDate := r.FormValue("start_date")
	endDate := r.FormValue("end_date")

	dateRange, err := core.ParseRange(startDate, endDate)
	if errors.Is(err, core.ErrInvalidDateRange) {
		// Fall back to the unfiltered view rather than a blank page
		flash = &Flash{Kind: "error", Message: "Invalid date range. Showing all expenses."}
		dateRange = nil
		startDate, endDate = "", ""
	}

	summary, err := s.summarize(r, user, dateRange)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to build dashboard",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := dashboardView{
		page: page{
			Title:    "Dashboard",
			Username: user.Username,
			Flash:    flash,
		},
		Total:     summary.Total.String(),
		Count:     summary.Count,
		HasBudget: user.Budget.Cents > 0,
		Budget:    user.Budget.String(),
		StartDate: startDate,
		EndDate:   endDate,
	}
	// The alert only fires for users who actually set a ceiling
	if view.HasBudget && summary.OverBudget {
		view.OverBudget = true
		view.OverBy = core.Money{Cents: summary.Total.Cents - user.Budget.Cents}.String()
	}
	for _, c := range summary.Categories() {
		view.Categories = append(view.Categories, categoryRow{Name: c.Name, Amount: c.Amount.String()})
	}

	s.render(w, r, "dashboard.html", view)
}

// summarize serves dashboard aggregates through the LRU cache
func (s *Server) summarize(r *http.Request, user core.User, dateRange *core.Range) (core.Summary, error) {
	key := s.summaryCacheKey(user.ID, dateRange)
	if cached, ok := s.summaryCache.Get(key); ok {
		return cached, nil
	}

	expenses, err := s.ledger.List(r.Context(), user.ID, dateRange)
	if err != nil {
		return core.Summary{}, err
	}
	summary := core.Summarize(expenses, user.Budget)
	s.summaryCache.Set(key, summary)
	return summary, nil
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		s.setFlash(w, "error", "Invalid form submission.")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	if _, err := s.budget.SetCeiling(r.Context(), user.ID, r.FormValue("budget")); err != nil {
		if errors.Is(err, core.ErrInvalidBudget) {
			s.setFlash(w, "error", "Budget must be a non-negative amount.")
		} else {
			s.logger.ErrorContext(r.Context(), "Failed to update budget",
				log.FieldUserID, user.ID,
				log.FieldError, err)
			s.setFlash(w, "error", "An error occurred. Please try again.")
		}
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	s.invalidateSummaries(user.ID)
	s.setFlash(w, "success", "Budget updated.")
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
