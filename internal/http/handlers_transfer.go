package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spendlog/internal/log"
	"spendlog/internal/tabular"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	expenses, err := s.ledger.List(r.Context(), user.ID, nil)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to export expenses",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("expenses_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := tabular.WriteCSV(w, expenses); err != nil {
		// Headers are gone already, nothing left to do but log
		s.logger.ErrorContext(r.Context(), "Failed writing CSV export",
			log.FieldUserID, user.ID,
			log.FieldError, err)
	}
}

func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	expenses, err := s.ledger.List(r.Context(), user.ID, nil)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to export expenses",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("expenses_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := tabular.WriteXLSX(w, expenses); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed writing XLSX export",
			log.FieldUserID, user.ID,
			log.FieldError, err)
	}
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	user, _ := userFrom(r)
	s.render(w, r, "upload.html", page{
		Title:    "Import Expenses",
		Username: user.Username,
		Flash:    s.popFlash(w, r),
	})
}

func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := userFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		s.setFlash(w, "error", "Upload too large or malformed.")
		http.Redirect(w, r, "/upload_csv", http.StatusFound)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.setFlash(w, "error", "Please choose a CSV file to upload.")
		http.Redirect(w, r, "/upload_csv", http.StatusFound)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		s.setFlash(w, "error", "Only .csv files are accepted.")
		http.Redirect(w, r, "/upload_csv", http.StatusFound)
		return
	}

	rows, err := tabular.ReadCSV(file)
	if err == nil {
		_, err = s.ledger.Import(r.Context(), user.ID, rows)
	}
	if err != nil {
		var rowErr *tabular.RowError
		if errors.As(err, &rowErr) {
			s.setFlash(w, "error", fmt.Sprintf("Import aborted at row %d: %v. No expenses were added.", rowErr.Line, rowErr.Err))
		} else {
			s.setFlash(w, "error", "Import failed: "+err.Error())
		}
		http.Redirect(w, r, "/upload_csv", http.StatusFound)
		return
	}

	s.invalidateSummaries(user.ID)
	s.setFlash(w, "success", fmt.Sprintf("Imported %d expenses.", len(rows)))
	http.Redirect(w, r, "/view_expenses", http.StatusFound)
}
