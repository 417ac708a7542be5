package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/types"
)

// TransferIntent is the object a transfer flow owns across its state machine.
// The idempotency key is minted exactly once, when the user confirms details
// and moves to the review step; retrying the same attempt reuses it so the
// ledger can deduplicate. Intents are never persisted mid-flight.
type TransferIntent struct {
	RecipientAddress string          `json:"recipientAddress"`
	RecipientUserID  *string         `json:"recipientUserId,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Memo             *string         `json:"memo,omitempty"`
	IdempotencyKey   string          `json:"idempotencyKey"`
	TxHash           *string         `json:"txHash,omitempty"`
}

// LedgerTransaction is the durable record of a transfer in the internal
// ledger. IdempotencyKey carries a storage-layer uniqueness constraint; a
// second recording attempt with the same key returns the existing row.
type LedgerTransaction struct {
	ID             string               `json:"id"`
	SenderID       string               `json:"senderId"`
	ReceiverID     string               `json:"receiverId"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       string               `json:"currency"`
	TxHash         string               `json:"txHash"`
	Status         types.TransferStatus `json:"status"`
	IdempotencyKey string               `json:"idempotencyKey"`
	Memo           *string              `json:"memo,omitempty"`
	CreatedAt      time.Time            `json:"createdAt"`
}

// HistoryEntry converts a ledger row to the unified history representation
// relative to the given user.
func (t *LedgerTransaction) HistoryEntry(userID string, counterpartyName *string) HistoryEntry {
	direction := types.DirectionOut
	if t.ReceiverID == userID {
		direction = types.DirectionIn
	}
	return HistoryEntry{
		Hash:             t.TxHash,
		Direction:        direction,
		Amount:           t.Amount,
		Currency:         t.Currency,
		CounterpartyName: counterpartyName,
		Memo:             t.Memo,
		Confirmed:        t.Status == types.StatusCompleted,
		Status:           t.Status,
		Timestamp:        t.CreatedAt,
		Source:           types.SourceLedger,
	}
}

// Contact is a saved recipient created from a completed transfer.
type Contact struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	ChainType types.ChainType `json:"chainType"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TransferTemplate is a saved transfer shape (recipient + amount + memo)
// created from a completed transfer.
type TransferTemplate struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Name             string          `json:"name"`
	RecipientAddress string          `json:"recipientAddress"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Memo             *string         `json:"memo,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}
