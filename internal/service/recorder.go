package service

import (
	"context"
	"fmt"

	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/storage"
	"github.com/wallet-hub/internal/types"
)

// LedgerWriter writes ledger transactions and resolves internal users.
type LedgerWriter interface {
	Record(ctx context.Context, tx *models.LedgerTransaction) (*models.LedgerTransaction, bool, error)
	ResolveUserByAddress(ctx context.Context, address string) (string, error)
}

// Recorder writes completed transfers to the internal ledger, exactly once
// per idempotency key. A duplicate submission returns the original row with
// cached=true and produces no second audit entry or notification.
type Recorder struct {
	ledger   LedgerWriter
	audit    storage.AuditSink
	notifier storage.Notifier
	logger   *logging.Logger
}

// NewRecorder creates a new recorder
func NewRecorder(ledger LedgerWriter, audit storage.AuditSink, notifier storage.Notifier, logger *logging.Logger) *Recorder {
	return &Recorder{
		ledger:   ledger,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
	}
}

// Record persists one transfer. The receiver must resolve to an internal
// user; a send to an address the system does not know fails here, with the
// tx hash already surfaced to the caller.
func (r *Recorder) Record(ctx context.Context, senderID string, intent models.TransferIntent) (*models.LedgerTransaction, bool, error) {
	if intent.IdempotencyKey == "" {
		return nil, false, fmt.Errorf("missing idempotency key")
	}
	if intent.TxHash == nil || *intent.TxHash == "" {
		return nil, false, fmt.Errorf("missing transaction hash")
	}

	receiverID, err := r.resolveReceiver(ctx, intent)
	if err != nil {
		return nil, false, err
	}

	tx := &models.LedgerTransaction{
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		TxHash:         *intent.TxHash,
		Status:         types.StatusPending,
		IdempotencyKey: intent.IdempotencyKey,
		Memo:           intent.Memo,
	}

	recorded, cached, err := r.ledger.Record(ctx, tx)
	if err != nil {
		return nil, false, err
	}
	if cached {
		return recorded, true, nil
	}

	if err := r.audit.Write(ctx, models.AuditLogEntry{
		UserID: senderID,
		Action: models.AuditActionTransferRecorded,
		Details: map[string]interface{}{
			"transactionId": recorded.ID,
			"txHash":        recorded.TxHash,
			"amount":        recorded.Amount.String(),
			"currency":      recorded.Currency,
			"receiverId":    recorded.ReceiverID,
		},
	}); err != nil {
		r.logger.WithError(err).WithField("transaction_id", recorded.ID).Error("failed to write audit entry for transfer")
	}

	r.notifier.EnqueueAsync(&models.Notification{
		UserID:  receiverID,
		Type:    "transfer_received",
		Title:   fmt.Sprintf("You received %s %s", recorded.Amount.String(), recorded.Currency),
		Message: fmt.Sprintf("Incoming transfer of %s %s", recorded.Amount.String(), recorded.Currency),
	})

	return recorded, false, nil
}

func (r *Recorder) resolveReceiver(ctx context.Context, intent models.TransferIntent) (string, error) {
	if intent.RecipientUserID != nil && *intent.RecipientUserID != "" {
		return *intent.RecipientUserID, nil
	}

	receiverID, err := r.ledger.ResolveUserByAddress(ctx, intent.RecipientAddress)
	if err != nil {
		return "", fmt.Errorf("recipient %s does not resolve to an internal user: %w", intent.RecipientAddress, err)
	}
	return receiverID, nil
}
