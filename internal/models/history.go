package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/types"
)

// HistoryEntry is a unified transaction-history row. Entries sourced from the
// internal ledger carry counterparty names and memos; entries sourced from a
// chain RPC carry the authoritative confirmation status. When both exist for
// one transfer they are merged by hash: ledger metadata wins, on-chain
// Confirmed wins.
type HistoryEntry struct {
	Hash                string                 `json:"hash"`
	Direction           types.HistoryDirection `json:"direction,omitempty"`
	Amount              decimal.Decimal        `json:"amount"`
	Currency            string                 `json:"currency"`
	CounterpartyAddress string                 `json:"counterpartyAddress,omitempty"`
	CounterpartyName    *string                `json:"counterpartyName,omitempty"`
	Memo                *string                `json:"memo,omitempty"`
	Confirmed           bool                   `json:"confirmed"`
	Status              types.TransferStatus   `json:"status"`
	Timestamp           time.Time              `json:"timestamp"`
	Source              types.HistorySource    `json:"source"`
}

// MergeInto overlays an on-chain reading onto a ledger entry for the same
// transfer. The receiver keeps its ledger metadata; confirmation state comes
// from the chain.
func (e *HistoryEntry) MergeInto(chainEntry HistoryEntry) {
	e.Confirmed = chainEntry.Confirmed
	if chainEntry.Status == types.StatusFailed {
		e.Status = types.StatusFailed
	} else if chainEntry.Confirmed {
		e.Status = types.StatusCompleted
	}
}
