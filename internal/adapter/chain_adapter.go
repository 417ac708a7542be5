// Package adapter provides a uniform balance/history interface over
// heterogeneous blockchain RPC backends.
package adapter

import (
	"context"
	"fmt"

	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// ChainAdapter defines the interface for blockchain-specific adapters.
//
// Failure policy: on RPC timeout or malformed response GetBalance returns the
// Unavailable sentinel and GetHistory returns an empty list; neither surfaces
// an error for provider failures, so callers can render the rest of the page.
// Retries belong to the caller, not this layer.
type ChainAdapter interface {
	// GetBalance retrieves the native balance for an address, converted to
	// whole units using the chain's decimal exponent. Provider failures
	// yield BalanceResult{Available: false}, never an error.
	GetBalance(ctx context.Context, address string) types.BalanceResult

	// GetHistory retrieves the most recent on-chain history entries for an
	// address, newest first, at most limit rows. Provider failures yield an
	// empty slice.
	GetHistory(ctx context.Context, address string, limit int) []models.HistoryEntry

	// ValidateAddress checks if address format is valid for this chain
	ValidateAddress(address string) bool

	// ChainType returns the chain identifier
	ChainType() types.ChainType
}

// Common error types for chain adapters

var (
	// ErrInvalidAddress indicates the address format is invalid
	ErrInvalidAddress = fmt.Errorf("invalid address format")

	// ErrProviderUnavailable indicates the data provider is unavailable
	ErrProviderUnavailable = fmt.Errorf("data provider unavailable")

	// ErrUnsupportedChain indicates no adapter is registered for a chain
	ErrUnsupportedChain = fmt.Errorf("unsupported chain")
)

// AdapterError wraps errors with additional context
type AdapterError struct {
	Chain   types.ChainType
	Op      string // Operation that failed (e.g., "GetBalance", "GetHistory")
	Err     error
	Details map[string]interface{}
}

func (e *AdapterError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("chain adapter error [%s:%s]: %v (details: %+v)", e.Chain, e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("chain adapter error [%s:%s]: %v", e.Chain, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// NewAdapterError creates a new AdapterError
func NewAdapterError(chain types.ChainType, op string, err error, details map[string]interface{}) *AdapterError {
	return &AdapterError{
		Chain:   chain,
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// Registry routes balance/history requests to the adapter for a chain.
type Registry struct {
	adapters map[types.ChainType]ChainAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[types.ChainType]ChainAdapter)}
}

// Register adds an adapter, replacing any previous adapter for its chain.
func (r *Registry) Register(a ChainAdapter) {
	r.adapters[a.ChainType()] = a
}

// ForChain returns the adapter for a chain type.
func (r *Registry) ForChain(chain types.ChainType) (ChainAdapter, error) {
	a, ok := r.adapters[chain]
	if !ok {
		return nil, NewAdapterError(chain, "ForChain", ErrUnsupportedChain, nil)
	}
	return a, nil
}
