// Package http serves the expense tracker's web UI.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"spendlog/internal/cache"
	"spendlog/internal/config"
	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/services"
	"spendlog/internal/storage"
	"spendlog/web"
)

// Pages rendered on top of the shared base layout
var viewNames = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"add_expense.html",
	"edit_expense.html",
	"view_expenses.html",
	"confirm_delete.html",
	"upload.html",
}

// credentialRateLimit is the per-IP posts per minute allowed on /login and /register
const credentialRateLimit = 10

type Server struct {
	http.Server
	storage *storage.SQLiteRepository
	ledger  *services.LedgerService
	budget  *services.BudgetService
	logger  *log.Logger

	templates   map[string]*template.Template
	rateLimiter *rateLimiter

	sessionTTL    time.Duration
	secureCookies bool
	maxUploadSize int64

	// LRU cache for dashboard summaries with eviction policy
	summaryCache *cache.LRUCache[core.Summary]

	// Cache cleanup management
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(cfg config.Config, repo *storage.SQLiteRepository, ledger *services.LedgerService, budget *services.BudgetService, logger *log.Logger) (*Server, error) {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: mux,
		},
		storage:          repo,
		ledger:           ledger,
		budget:           budget,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      newRateLimiter(credentialRateLimit),
		sessionTTL:       cfg.SessionTTL,
		secureCookies:    cfg.SecureCookies,
		maxUploadSize:    cfg.MaxUploadBytes,
		summaryCache:     cache.NewLRUCache[core.Summary](100, 5*time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}

	// Start periodic cache cleanup
	go s.startCacheCleanup()

	// Parse embedded templates at startup. Each page is combined with the
	// base layout so views can only override the blocks it defines.
	s.templates = make(map[string]*template.Template, len(viewNames))
	for _, name := range viewNames {
		t, err := template.ParseFS(web.TemplatesFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		s.templates[name] = t
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(web.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Tiny cache for static assets
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("GET /register", s.withSecurityHeaders(s.handleRegisterForm))
	mux.HandleFunc("POST /register", s.withSecurityHeaders(s.withRateLimit(s.handleRegister)))
	mux.HandleFunc("GET /login", s.withSecurityHeaders(s.handleLoginForm))
	mux.HandleFunc("POST /login", s.withSecurityHeaders(s.withRateLimit(s.handleLogin)))
	mux.HandleFunc("GET /logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("GET /dashboard", s.withSecurityHeaders(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("POST /dashboard", s.withSecurityHeaders(s.requireAuth(s.handleDashboard)))
	mux.HandleFunc("POST /update_budget", s.withSecurityHeaders(s.requireAuth(s.handleUpdateBudget)))
	// Older clients post the budget form here
	mux.HandleFunc("POST /set_budget", s.withSecurityHeaders(s.requireAuth(s.handleUpdateBudget)))

	mux.HandleFunc("GET /add_expense", s.withSecurityHeaders(s.requireAuth(s.handleAddExpenseForm)))
	mux.HandleFunc("POST /add_expense", s.withSecurityHeaders(s.requireAuth(s.handleAddExpense)))
	mux.HandleFunc("GET /edit_expense/{id}", s.withSecurityHeaders(s.requireAuth(s.handleEditExpenseForm)))
	mux.HandleFunc("POST /edit_expense/{id}", s.withSecurityHeaders(s.requireAuth(s.handleEditExpense)))
	mux.HandleFunc("GET /delete_expense/{id}", s.withSecurityHeaders(s.requireAuth(s.handleDeleteExpenseConfirm)))
	mux.HandleFunc("POST /delete_expense/{id}", s.withSecurityHeaders(s.requireAuth(s.handleDeleteExpense)))
	mux.HandleFunc("GET /view_expenses", s.withSecurityHeaders(s.requireAuth(s.handleViewExpenses)))

	mux.HandleFunc("GET /export_csv", s.withSecurityHeaders(s.requireAuth(s.handleExportCSV)))
	mux.HandleFunc("GET /export_excel", s.withSecurityHeaders(s.requireAuth(s.handleExportExcel)))
	mux.HandleFunc("GET /upload_csv", s.withSecurityHeaders(s.requireAuth(s.handleUploadForm)))
	mux.HandleFunc("POST /upload_csv", s.withSecurityHeaders(s.requireAuth(s.handleUploadCSV)))

	return s, nil
}

// startCacheCleanup runs periodic cleanup for the summary cache
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.summaryCache.CleanExpired(); removed > 0 {
				s.logger.Debug("Cleaned expired cache entries", "removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := s.storage.GetSession(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.storage.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render writes a page through its template pair. Render failures after the
// first byte cannot change the status code anymore, so they are only logged.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, ok := s.templates[name]
	if !ok {
		s.logger.ErrorContext(r.Context(), "Unknown template", "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template render failed",
			"template", name,
			log.FieldError, err)
	}
}

func (s *Server) summaryCacheKey(userID int64, dateRange *core.Range) string {
	if dateRange == nil {
		return fmt.Sprintf("dashboard:%d:all", userID)
	}
	return fmt.Sprintf("dashboard:%d:%s:%s", userID, dateRange.Start, dateRange.End)
}

// invalidateSummaries drops every cached summary for the user
func (s *Server) invalidateSummaries(userID int64) {
	s.summaryCache.DeletePrefix(fmt.Sprintf("dashboard:%d:", userID))
}
