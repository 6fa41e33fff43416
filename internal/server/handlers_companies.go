package server

import (
	"net/http"
	"sync/atomic"

	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/types"
	"go.uber.org/zap"
)

// handleListCompanies lists the caller's companies, newest first
func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	companies, err := s.companies.ListCompanies(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"companies": companies, "count": len(companies)})
}

func (s *Server) analyzeRequest(w http.ResponseWriter, r *http.Request) (enrichment.AnalyzeRequest, bool) {
	userID, ok := s.userID(w, r)
	if !ok {
		return enrichment.AnalyzeRequest{}, false
	}
	var req types.AnalyzeCompanyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return enrichment.AnalyzeRequest{}, false
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return enrichment.AnalyzeRequest{}, false
	}
	return enrichment.AnalyzeRequest{UserID: userID, Domain: req.Domain, WebsiteURL: req.WebsiteURL}, true
}

// handleAnalyze runs an analysis and returns its result when done
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}
	res, err := s.companies.Analyze(r.Context(), req, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleAnalyzeStream runs an analysis and streams its progress as SSE.
// Each progress update is a "progress" event; the run ends with "complete"
// carrying the result or "error". Errors raised before the first event are
// plain JSON responses.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.analyzeRequest(w, r)
	if !ok {
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	var started atomic.Bool
	res, err := s.companies.Analyze(r.Context(), req, func(ev enrichment.ProgressEvent) {
		started.Store(true)
		if werr := sse.WriteEvent("progress", ev); werr != nil {
			s.logger.Debug("Progress event not delivered", zap.Error(werr))
		}
	})
	if err != nil {
		if !started.Load() {
			s.writeError(w, r, err)
			return
		}
		sse.WriteError(err.Error())
		return
	}
	sse.WriteEvent("complete", res) //nolint:errcheck
}

// handleCleanup deletes the caller's corrupted company records
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	res, err := s.companies.CleanupCorruptedRecords(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, res)
}

// handleGetCompany retrieves a company by ID
func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	company, err := s.companies.GetCompany(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, company)
}

// handleUpdateCompany sets industry, description and values
func (s *Server) handleUpdateCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req types.UpdateCompanyProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	company, err := s.companies.UpdateProfile(r.Context(), userID, r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, company)
}

// handleDeleteCompany deletes a company and its contacts
func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	company, err := s.companies.DeleteCompany(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, company)
}

// handleCompanyContacts lists a company's contacts
func (s *Server) handleCompanyContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	contacts, err := s.companies.CompanyContacts(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"contacts": contacts, "count": len(contacts)})
}
