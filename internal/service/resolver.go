// Package service implements the wallet hub domain services: account
// resolution, balance/history aggregation, the transfer flow, and the key
// export guard.
package service

import (
	"context"

	"github.com/wallet-hub/internal/errors"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// AccountResolver selects the single active account for a chain type.
// Preference order is connected, then embedded, then linked read-only. When
// the user has no account at all for the chain the resolver returns
// NO_ACCOUNT_FOR_CHAIN; it never fabricates a placeholder account.
type AccountResolver struct {
	provider identity.Provider
	logger   *logging.Logger
}

// NewAccountResolver creates a new account resolver
func NewAccountResolver(provider identity.Provider, logger *logging.Logger) *AccountResolver {
	return &AccountResolver{
		provider: provider,
		logger:   logger,
	}
}

// ResolveActive picks the active account for the chain. sessionAccounts are
// the accounts with a live signer in the current session; the provider's
// linked-account list supplies embedded and read-only candidates. A chain
// switch re-runs this resolution, the caller clears any cached snapshot
// first.
func (r *AccountResolver) ResolveActive(ctx context.Context, userID string, chain types.ChainType, sessionAccounts []models.LinkedAccount) (models.ActiveAccount, error) {
	if !chain.Valid() {
		return models.ActiveAccount{}, errors.NewInvalidParameterError("chainType", "unsupported chain")
	}

	for _, account := range sessionAccounts {
		if account.ChainType == chain && account.CustodyClass == types.CustodyConnected {
			return models.NewActiveAccount(account), nil
		}
	}

	linked, err := r.provider.ListLinkedAccounts(ctx, userID)
	if err != nil {
		return models.ActiveAccount{}, errors.NewInternalError("failed to list linked accounts", err)
	}

	if account, ok := pickByCustody(linked, chain, types.CustodyEmbedded); ok {
		return models.NewActiveAccount(account), nil
	}
	if account, ok := pickByCustody(linked, chain, types.CustodyLinkedReadOnly); ok {
		return models.NewActiveAccount(account), nil
	}

	r.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"chain":   string(chain),
	}).Info("no account available for chain")

	return models.ActiveAccount{}, errors.NewNoAccountError(chain)
}

// ListAccounts returns every linked account the provider knows for a user,
// filtered to supported chains.
func (r *AccountResolver) ListAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error) {
	linked, err := r.provider.ListLinkedAccounts(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list linked accounts", err)
	}
	return linked, nil
}

func pickByCustody(accounts []models.LinkedAccount, chain types.ChainType, custody types.CustodyClass) (models.LinkedAccount, bool) {
	for _, account := range accounts {
		if account.ChainType == chain && account.CustodyClass == custody {
			return account, true
		}
	}
	return models.LinkedAccount{}, false
}
