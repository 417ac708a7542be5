package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// handleBeginTransfer handles POST /api/transfers - start a transfer flow
func (s *Server) handleBeginTransfer(w http.ResponseWriter, r *http.Request) {
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

	view := s.orchestrator.Begin(userID, active)
	respondJSON(w, http.StatusCreated, view)
}

// handleGetTransfer handles GET /api/transfers/{id} - poll flow state
func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	view, err := s.orchestrator.Flow(userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleAbandonTransfer handles DELETE /api/transfers/{id} - discard a flow
// the user walked away from
func (s *Server) handleAbandonTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := s.orchestrator.Abandon(userID, mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

// handleSelectRecipient handles POST /api/transfers/{id}/recipient
func (s *Server) handleSelectRecipient(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Address         string  `json:"address"`
		RecipientUserID *string `json:"recipientUserId,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	view, err := s.orchestrator.SelectRecipient(userID, mux.Vars(r)["id"], req.Address, req.RecipientUserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleConfirmDetails handles POST /api/transfers/{id}/details
func (s *Server) handleConfirmDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Memo   *string         `json:"memo,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	view, err := s.orchestrator.ConfirmDetails(userID, mux.Vars(r)["id"], req.Amount, req.Memo)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleEditDetails handles POST /api/transfers/{id}/edit - back out of the
// review step
func (s *Server) handleEditDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	view, err := s.orchestrator.EditDetails(userID, mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleExecuteTransfer handles POST /api/transfers/{id}/execute. The
// pipeline runs detached from the request because the signing stage can
// outlive any sane HTTP timeout; the client polls the flow for progress.
// The run is unbounded unless ExecuteTimeout is configured, since the user
// may take arbitrarily long to approve the signature.
func (s *Server) handleExecuteTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	flowID := mux.Vars(r)["id"]

	// Validate flow existence and ownership before detaching.
	view, err := s.orchestrator.Flow(userID, flowID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	go func() {
		ctx := context.Background()
		if s.config.ExecuteTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ExecuteTimeout)
			defer cancel()
		}
		if err := s.orchestrator.Execute(ctx, userID, flowID); err != nil {
			s.logger.WithError(err).WithField("flow_id", flowID).Warn("transfer pipeline failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, view)
}

// handleRetryRecording handles POST /api/transfers/{id}/retry-recording
func (s *Server) handleRetryRecording(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	flowID := mux.Vars(r)["id"]

	if err := s.orchestrator.RetryRecording(r.Context(), userID, flowID); err != nil {
		respondServiceError(w, err)
		return
	}

	view, err := s.orchestrator.Flow(userID, flowID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// handleSaveContact handles POST /api/transfers/{id}/contact
func (s *Server) handleSaveContact(w http.ResponseWriter, r *http.Request) {
	s.saveSideEffect(w, r, s.orchestrator.SaveRecipientAsContact)
}

// handleSaveTemplate handles POST /api/transfers/{id}/template
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	s.saveSideEffect(w, r, s.orchestrator.SaveAsTemplate)
}

func (s *Server) saveSideEffect(w http.ResponseWriter, r *http.Request, save func(userID, flowID, name string) error) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Name required", nil)
		return
	}

	if err := save(userID, mux.Vars(r)["id"], req.Name); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
