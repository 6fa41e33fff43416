package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jonathan/prospect-analyzer/internal/onepager"
)

// handleOnePagerHTML renders a company's one-pager. ?format=json returns the
// assembled data instead; ?prepared_by= sets the author line.
func (s *Server) handleOnePagerHTML(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	op, err := s.onePager.Build(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "json" {
		s.jsonResponse(w, http.StatusOK, op)
		return
	}

	html, err := s.onePager.HTML(op, r.URL.Query().Get("prepared_by"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html)) //nolint:errcheck
}

// handleOnePagerPDF downloads a company's one-pager as an A4 PDF
func (s *Server) handleOnePagerPDF(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	op, err := s.onePager.Build(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pdf, err := s.onePager.PDF(r.Context(), op, r.URL.Query().Get("prepared_by"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", onepager.Filename(op.Company.CompanyName)))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf) //nolint:errcheck
}
