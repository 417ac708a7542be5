package api

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/models"
)

// handleRecordTransaction handles POST /api/ledger/transactions - record a
// transfer directly, keyed by the Idempotency-Key header. Re-sending the
// same key returns the original row with cached=true.
func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Idempotency-Key header required", nil)
		return
	}

	var req struct {
		RecipientAddress string          `json:"recipientAddress"`
		RecipientUserID  *string         `json:"recipientUserId,omitempty"`
		Amount           decimal.Decimal `json:"amount"`
		Currency         string          `json:"currency"`
		TxHash           string          `json:"txHash"`
		Memo             *string         `json:"memo,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Amount must be greater than zero", nil)
		return
	}
	if req.TxHash == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Transaction hash required", nil)
		return
	}

	intent := models.TransferIntent{
		RecipientAddress: req.RecipientAddress,
		RecipientUserID:  req.RecipientUserID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Memo:             req.Memo,
		IdempotencyKey:   key,
		TxHash:           &req.TxHash,
	}

	recorded, cached, err := s.recorder.Record(r.Context(), userID, intent)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if cached {
		status = http.StatusOK
	}
	respondJSON(w, status, map[string]interface{}{
		"transaction": recorded,
		"cached":      cached,
	})
}
