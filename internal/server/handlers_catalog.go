package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/prospect-analyzer/internal/catalog"
	"github.com/jonathan/prospect-analyzer/internal/types"
)

// catalogID parses the integer {id} path value.
func catalogID(r *http.Request) (int, error) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, &ErrValidation{Field: "id", Message: "invalid ID: " + raw}
	}
	return id, nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"categories": s.catalog.Categories()})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.catalog.AddCategory(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var c catalog.Category
	if err := decodeJSON(w, r, &c); err != nil {
		s.writeError(w, r, err)
		return
	}
	c.ID = id
	updated, err := s.catalog.UpdateCategory(c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err == nil {
		err = s.catalog.DeleteCategory(id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProducts(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"products": s.catalog.Products()})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.catalog.Product(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.catalog.AddProduct(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	p.ID = id
	updated, err := s.catalog.UpdateProduct(p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err == nil {
		err = s.catalog.DeleteProduct(id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProductAlignment scores every product against one of the caller's
// companies (?company_id=), best fit first
func (s *Server) handleProductAlignment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	if s.companies == nil {
		s.errorResponse(w, http.StatusNotImplemented, "company lookups are not enabled")
		return
	}
	company, err := s.companies.GetCompany(r.Context(), userID, r.URL.Query().Get("company_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	industry := ""
	if company.Industry != nil {
		industry = *company.Industry
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"company_id": company.ID,
		"alignments": s.catalog.Alignments(industry, company.Values),
	})
}

func (s *Server) handleListStories(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"stories": s.catalog.Stories()})
}

func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	var st catalog.SuccessStory
	if err := decodeJSON(w, r, &st); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := s.catalog.AddStory(st)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateStory(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var st catalog.SuccessStory
	if err := decodeJSON(w, r, &st); err != nil {
		s.writeError(w, r, err)
		return
	}
	st.ID = id
	updated, err := s.catalog.UpdateStory(st)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	id, err := catalogID(r)
	if err == nil {
		err = s.catalog.DeleteStory(id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchHistory(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"searches": s.catalog.SearchHistory()})
}

func (s *Server) handleAddSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchHistoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.catalog.AddSearch(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, entry)
}
