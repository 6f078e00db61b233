package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"spendlog/internal/auth"
	"spendlog/internal/core"
	"spendlog/internal/log"
)

const minPasswordLength = 8

// page carries the fields every view needs
type page struct {
	Title    string
	Username string // empty when nobody is logged in
	Flash    *Flash
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", page{Title: "Register", Flash: s.popFlash(w, r)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.setFlash(w, "error", "Invalid form submission.")
		http.Redirect(w, r, "/register", http.StatusFound)
		return
	}

	// Email addresses are stored and matched in lower case
	email := strings.ToLower(sanitizeInput(r.FormValue("email")))
	username := sanitizeInput(r.FormValue("username"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	switch {
	case email == "" || username == "" || password == "":
		s.setFlash(w, "error", "All fields are required.")
	case !strings.Contains(email, "@"):
		s.setFlash(w, "error", "Please enter a valid email address.")
	case len(password) < minPasswordLength:
		s.setFlash(w, "error", "Password must be at least 8 characters.")
	case password != confirm:
		s.setFlash(w, "error", "Passwords do not match.")
	default:
		hash, err := auth.HashPassword(password)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to hash password", log.FieldError, err)
			s.setFlash(w, "error", "An error occurred. Please try again.")
			http.Redirect(w, r, "/register", http.StatusFound)
			return
		}

		user, err := s.storage.CreateUser(r.Context(), email, username, hash)
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			s.setFlash(w, "error", "That email is already registered.")
		case errors.Is(err, core.ErrDuplicateUsername):
			s.setFlash(w, "error", "That username is already taken.")
		case err != nil:
			s.logger.ErrorContext(r.Context(), "Failed to create user", log.FieldError, err)
			s.setFlash(w, "error", "An error occurred. Please try again.")
		default:
			s.logger.InfoContext(r.Context(), "User registered", log.FieldUserID, user.ID)
			s.setFlash(w, "success", "Account created. Please log in.")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
	}

	http.Redirect(w, r, "/register", http.StatusFound)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", page{Title: "Login", Flash: s.popFlash(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.setFlash(w, "error", "Invalid form submission.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	email := strings.ToLower(sanitizeInput(r.FormValue("email")))
	password := r.FormValue("password")

	if email == "" || password == "" {
		s.setFlash(w, "error", "Email and password are required.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	user, err := s.storage.GetUserByEmail(r.Context(), email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		// Same message for unknown user and wrong password
		s.setFlash(w, "error", "Invalid email or password.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	token := auth.NewSessionToken()
	expiresAt := time.Now().Add(s.sessionTTL)
	if err := s.storage.CreateSession(r.Context(), token, user.ID, expiresAt); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to create session",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		s.setFlash(w, "error", "An error occurred. Please try again.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	s.setSessionCookie(w, token)
	s.logger.InfoContext(r.Context(), "User logged in", log.FieldUserID, user.ID)
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.storage.DeleteSession(r.Context(), cookie.Value); err != nil {
			s.logger.ErrorContext(r.Context(), "Failed to delete session", log.FieldError, err)
		}
	}
	s.clearSessionCookie(w)
	s.setFlash(w, "success", "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusFound)
}
