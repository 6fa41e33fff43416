package server

import (
	"net/http"

	"github.com/jonathan/prospect-analyzer/internal/relay"
	"github.com/jonathan/prospect-analyzer/internal/types"
)

// handleRelay invokes a provider action: {action, data} in,
// {success, data} or {success: false, error} out.
func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req types.RelayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonResponse(w, HTTPStatus(err), types.RelayResponse{Error: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, types.RelayResponse{Error: errorMessage(err)})
		return
	}

	data, err := s.relay.Invoke(r.Context(), userID, relay.Action(req.Action), req.Data)
	if err != nil {
		s.jsonResponse(w, HTTPStatus(err), types.RelayResponse{Error: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, types.RelayResponse{Success: true, Data: data})
}

// handleProviderStatus reports whether the provider accepts our credentials
func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	status, err := s.relay.TestConnection(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}
