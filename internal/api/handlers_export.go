package api

import (
	"net/http"
	"strings"

	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// handleRequestExport handles POST /api/exports - request key disclosure
// for an account. The response carries the provider-hosted reveal URL; key
// material never passes through this service.
func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	token := bearerToken(r)
	if token == "" {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Access token required", nil)
		return
	}

	var req struct {
		Address      string             `json:"address"`
		ChainType    types.ChainType    `json:"chainType"`
		CustodyClass types.CustodyClass `json:"custodyClass"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	target := models.LinkedAccount{
		Address:      req.Address,
		ChainType:    req.ChainType,
		CustodyClass: req.CustodyClass,
	}

	revealURL, err := s.exportGuard.RequestExport(r.Context(), userID, target, token, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"revealUrl": revealURL,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return r.RemoteAddr
}
