// Package types provides common type definitions for the wallet hub system.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChainType represents supported blockchain networks
type ChainType string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainType = "ethereum"
	// ChainSolana represents the Solana mainnet
	ChainSolana ChainType = "solana"
)

// Valid reports whether the chain type is one of the supported networks.
func (c ChainType) Valid() bool {
	return c == ChainEthereum || c == ChainSolana
}

// Decimals returns the exponent of the chain's smallest unit
// (wei for Ethereum, lamports for Solana).
func (c ChainType) Decimals() int32 {
	if c == ChainSolana {
		return 9
	}
	return 18
}

// NativeCurrency returns the symbol of the chain's native asset.
func (c ChainType) NativeCurrency() string {
	if c == ChainSolana {
		return "SOL"
	}
	return "ETH"
}

// CustodyClass represents how an account's private key is held
type CustodyClass string

const (
	// CustodyConnected means a live signer is available in the current session
	CustodyConnected CustodyClass = "connected"
	// CustodyEmbedded means the key is custodially held by the identity provider
	CustodyEmbedded CustodyClass = "embedded"
	// CustodyLinkedReadOnly means the address is known but no signer is available
	CustodyLinkedReadOnly CustodyClass = "linkedReadOnly"
)

// TransferStatus represents the recorded status of a ledger transaction
type TransferStatus string

const (
	// StatusPending represents a transfer awaiting on-chain confirmation
	StatusPending TransferStatus = "pending"
	// StatusCompleted represents a confirmed transfer
	StatusCompleted TransferStatus = "completed"
	// StatusFailed represents a failed transfer
	StatusFailed TransferStatus = "failed"
)

// FlowState represents the user-visible state of a transfer flow
type FlowState string

const (
	// FlowRecipient is the recipient selection step
	FlowRecipient FlowState = "recipient"
	// FlowDetails is the amount/memo entry step
	FlowDetails FlowState = "details"
	// FlowConfirm is the review step; the idempotency key exists from here on
	FlowConfirm FlowState = "confirm"
	// FlowProcessing is the non-cancelable execution pipeline
	FlowProcessing FlowState = "processing"
	// FlowSuccess is the terminal success state
	FlowSuccess FlowState = "success"
	// FlowFailed is shown briefly after a pipeline error, then the flow
	// returns to FlowConfirm with its details preserved
	FlowFailed FlowState = "failed"
)

// ProcessingStage represents the sub-stage of a processing transfer
type ProcessingStage string

const (
	// StageInitiating is the pre-flight stage (signer lookup)
	StageInitiating ProcessingStage = "initiating"
	// StageSigning waits on the signer, possibly on human approval
	StageSigning ProcessingStage = "signing"
	// StageBroadcasting is the post-signature propagation grace period
	StageBroadcasting ProcessingStage = "broadcasting"
	// StageRecording writes the ledger row
	StageRecording ProcessingStage = "recording"
	// StageCompleted is the terminal pipeline stage
	StageCompleted ProcessingStage = "completed"
)

// HistoryDirection represents whether a history entry is incoming or outgoing
type HistoryDirection string

const (
	// DirectionIn represents an incoming transfer (account is recipient)
	DirectionIn HistoryDirection = "in"
	// DirectionOut represents an outgoing transfer (account is sender)
	DirectionOut HistoryDirection = "out"
)

// HistorySource identifies which system of record produced a history entry
type HistorySource string

const (
	// SourceLedger marks entries read from the internal ledger
	SourceLedger HistorySource = "ledger"
	// SourceChain marks entries read from a blockchain RPC
	SourceChain HistorySource = "chain"
)

// BalanceResult is a point-in-time balance read. It is derived, never
// persisted. Available=false means the RPC was unreachable or returned a
// malformed response; callers show a placeholder instead of failing the page.
type BalanceResult struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Available bool            `json:"available"`
	AsOf      time.Time       `json:"asOf"`
}

// UnavailableBalance returns the sentinel for an unreachable balance read.
func UnavailableBalance(currency string) BalanceResult {
	return BalanceResult{Currency: currency, Available: false, AsOf: time.Now().UTC()}
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
