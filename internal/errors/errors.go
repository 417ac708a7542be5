// Package errors provides categorized error types shared across the wallet
// hub services and the HTTP layer.
package errors

import (
	"fmt"
	"net/http"

	"github.com/wallet-hub/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryUserInput represents user input errors (4xx)
	CategoryUserInput ErrorCategory = "user_input"
	// CategoryValidation represents validation errors
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthorization represents authorization errors
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents not found errors
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryProvider represents chain RPC / provider errors
	CategoryProvider ErrorCategory = "provider"
	// CategoryCustody represents custody and signing errors
	CategoryCustody ErrorCategory = "custody"
	// CategoryDatabase represents database errors
	CategoryDatabase ErrorCategory = "database"
	// CategorySystem represents internal system errors (5xx)
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// User input errors (4xx)

// NewInvalidAddressError creates an invalid address error
func NewInvalidAddressError(chain types.ChainType, address string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUserInput,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_ADDRESS",
		Message:    fmt.Sprintf("invalid %s address: %s", chain, address),
		Details: map[string]interface{}{
			"chain":   string(chain),
			"address": address,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NewNoAccountError indicates the user has no account at all for a chain.
// Callers offer account creation instead of fabricating a placeholder.
func NewNoAccountError(chain types.ChainType) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       "NO_ACCOUNT_FOR_CHAIN",
		Message:    fmt.Sprintf("no account available for chain %s", chain),
		Details: map[string]interface{}{
			"chain": string(chain),
		},
	}
}

// Custody and signing errors

// NewNoSignerError indicates no signer is available for the active account.
func NewNoSignerError(address string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCustody,
		StatusCode: http.StatusConflict,
		Code:       "NO_SIGNER",
		Message:    "no signer available for the active account",
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewSignerRejectedError indicates the signer declined or canceled the
// signature request. User-caused; the flow returns to review for retry.
func NewSignerRejectedError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCustody,
		StatusCode: http.StatusConflict,
		Code:       "SIGNER_REJECTED",
		Message:    "signature request was rejected",
		Cause:      cause,
	}
}

// NewNotEmbeddedError indicates key export was requested for an account that
// is not custodially held and has no embedded sibling on the same chain.
func NewNotEmbeddedError(chain types.ChainType) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCustody,
		StatusCode: http.StatusForbidden,
		Code:       "EXPORT_NOT_SUPPORTED",
		Message: fmt.Sprintf(
			"private key export is only available for accounts held by the custody provider; no such account exists for chain %s", chain),
		Details: map[string]interface{}{
			"chain": string(chain),
		},
	}
}

// Provider errors

// NewProviderUnavailableError indicates a chain RPC was unreachable or
// returned a malformed response.
func NewProviderUnavailableError(chain types.ChainType, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusServiceUnavailable,
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    fmt.Sprintf("chain provider for %s is unavailable", chain),
		Cause:      cause,
	}
}

// NewBroadcastError indicates the transfer failed while propagating.
func NewBroadcastError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryProvider,
		StatusCode: http.StatusBadGateway,
		Code:       "BROADCAST_FAILED",
		Message:    "failed to broadcast the transaction",
		Cause:      cause,
	}
}

// Database errors

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "DATABASE_ERROR",
		Message:    fmt.Sprintf("database operation failed: %s", operation),
		Cause:      cause,
	}
}

// NewRecordingError indicates the ledger write failed after a possible
// on-chain broadcast. The tx hash, when present, is surfaced so the user
// keeps proof of the on-chain action.
func NewRecordingError(txHash string, cause error) *CategorizedError {
	details := map[string]interface{}{}
	if txHash != "" {
		details["txHash"] = txHash
	}
	return &CategorizedError{
		Category:   CategoryDatabase,
		StatusCode: http.StatusInternalServerError,
		Code:       "RECORDING_FAILED",
		Message:    "transfer completed on-chain but could not be recorded; retry recording with the same key",
		Details:    details,
		Cause:      cause,
	}
}

// NewInternalError creates a generic internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}
