// Package identity provides the boundary to the external wallet-custody
// identity provider: linked-account discovery, signer access, access-token
// verification, and key-reveal delegation.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/models"
)

var (
	// ErrNoSigner indicates no signer is available for the account
	ErrNoSigner = fmt.Errorf("no signer available for account")

	// ErrSignerRejected indicates the user declined or canceled the
	// signature prompt
	ErrSignerRejected = fmt.Errorf("signature request rejected")

	// ErrTokenRejected indicates the access token failed verification
	ErrTokenRejected = fmt.Errorf("access token rejected")
)

// SignRequest describes a transfer to be signed and broadcast.
type SignRequest struct {
	From     string
	To       string
	Amount   decimal.Decimal
	Currency string
}

// Signer signs and broadcasts a transfer on behalf of one account. The
// SignAndBroadcast call may block on out-of-band human approval for an
// unbounded duration; callers must not impose their own timeout, only
// context cancellation applies.
type Signer interface {
	// SignAndBroadcast signs the transfer and submits it, returning the
	// transaction hash. Returns ErrSignerRejected (possibly wrapped) when
	// the user declines.
	SignAndBroadcast(ctx context.Context, req SignRequest) (string, error)

	// Balance reads the native balance through the signer's own provider.
	// Used for connected accounts instead of the public RPC adapter.
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// TokenClaims are the verified claims of an access token.
type TokenClaims struct {
	UserID    string    `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Provider is the custody/identity provider boundary. Key material never
// crosses this interface; reveal is delegated to the provider's own
// mechanism and this subsystem only obtains the handoff location.
type Provider interface {
	// ListLinkedAccounts returns every account the provider knows for a
	// user, with custody classification.
	ListLinkedAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error)

	// GetSigner returns a signer for the account, or ErrNoSigner when the
	// account is linked read-only.
	GetSigner(ctx context.Context, account models.LinkedAccount) (Signer, error)

	// VerifyAccessToken verifies a token with the provider. Verification is
	// always live; cached results are never accepted for high-risk actions.
	VerifyAccessToken(ctx context.Context, token string) (*TokenClaims, error)

	// RevealURL returns the provider-hosted location where key disclosure
	// for an embedded account takes place, out of this process.
	RevealURL(account models.LinkedAccount) string
}
