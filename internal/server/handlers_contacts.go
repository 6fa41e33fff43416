package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/prospect-analyzer/internal/enrichment"
	"github.com/jonathan/prospect-analyzer/internal/types"
)

// contactID resolves the caller and the {id} path value.
func (s *Server) contactID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := s.userID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := enrichment.ParseID("contact_id", r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

// handleSearchContacts searches the caller's contacts (?q=term)
func (s *Server) handleSearchContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	contacts, err := s.contacts.Search(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"contacts": contacts, "count": len(contacts)})
}

// handleCreateContact adds a contact by hand
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req types.CreateContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	contact, err := s.contacts.CreateManual(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, contact)
}

func (s *Server) handleContactStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	stats, err := s.contacts.Stats(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, stats)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.contactID(w, r)
	if !ok {
		return
	}
	contact, err := s.contacts.Get(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, contact)
}

// handleUpdateContact applies a partial update. Unknown fields are ignored.
func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.contactID(w, r)
	if !ok {
		return
	}
	var fields map[string]any
	if err := decodeJSON(w, r, &fields); err != nil {
		s.writeError(w, r, err)
		return
	}
	contact, err := s.contacts.Update(r.Context(), userID, id, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, contact)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.contactID(w, r)
	if !ok {
		return
	}
	if err := s.contacts.Delete(r.Context(), userID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateContactStatus(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.contactID(w, r)
	if !ok {
		return
	}
	var req types.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	contact, err := s.contacts.UpdateStatus(r.Context(), userID, id, req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, contact)
}

func (s *Server) handleUpdateContactNotes(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := s.contactID(w, r)
	if !ok {
		return
	}
	var req types.UpdateNotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	contact, err := s.contacts.UpdateNotes(r.Context(), userID, id, req.Notes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, contact)
}
