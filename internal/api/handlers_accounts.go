package api

import (
	"net/http"

	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// resolveRequest carries the chain to resolve for, plus the accounts the
// client session holds a live signer for. Connected accounts exist only in
// the session, so the server learns about them per request.
type resolveRequest struct {
	ChainType       types.ChainType        `json:"chainType"`
	SessionAccounts []models.LinkedAccount `json:"sessionAccounts,omitempty"`
	// PreviousChain, when set on a chain switch, has its cached snapshot
	// cleared so the page never shows the old chain's numbers.
	PreviousChain types.ChainType `json:"previousChain,omitempty"`
}

// handleListAccounts handles GET /api/accounts - list linked accounts
func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	accounts, err := s.resolver.ListAccounts(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
	})
}

// handleResolveActive handles POST /api/accounts/active - resolve the active
// account for a chain
func (s *Server) handleResolveActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	active, err := s.resolver.ResolveActive(r.Context(), userID, req.ChainType, req.SessionAccounts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if req.PreviousChain.Valid() && req.PreviousChain != req.ChainType {
		s.aggregator.ClearChain(r.Context(), userID, req.PreviousChain)
	}

	respondJSON(w, http.StatusOK, active)
}

// handleSnapshot handles POST /api/wallet/snapshot - read the wallet
// snapshot for a chain, served from cache when fresh
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.serveSnapshot(w, r, false)
}

// handleRefresh handles POST /api/wallet/refresh - force a refresh,
// clearing the cached snapshot first
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.serveSnapshot(w, r, true)
}

func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request, force bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req resolveRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	active, err := s.resolver.ResolveActive(r.Context(), userID, req.ChainType, req.SessionAccounts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if force {
		s.aggregator.ClearChain(r.Context(), userID, req.ChainType)
	}

	result, err := s.aggregator.Snapshot(r.Context(), userID, active)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"account":  active,
		"snapshot": result,
	})
}
