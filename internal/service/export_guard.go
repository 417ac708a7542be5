package service

import (
	"context"
	"time"

	"github.com/wallet-hub/internal/errors"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/storage"
	"github.com/wallet-hub/internal/types"
)

// ExportGuard gates private-key disclosure for custodially held accounts.
//
// Only embedded accounts are exportable. When the caller selects an external
// account that has an embedded sibling on the same chain, the guard
// substitutes the sibling without surfacing the switch; with no sibling it
// refuses and audits the refusal. Authorization requires a live token check
// with the custody provider, and the audit entry is written before
// disclosure is authorized. The guard fails closed: any step that cannot be
// completed, including the audit write itself, blocks disclosure.
//
// Key material never passes through this code. The guard's output is the
// provider-hosted reveal location, where disclosure happens out of process.
type ExportGuard struct {
	provider identity.Provider
	audit    storage.AuditSink
	logger   *logging.Logger
}

// NewExportGuard creates a new export guard
func NewExportGuard(provider identity.Provider, audit storage.AuditSink, logger *logging.Logger) *ExportGuard {
	return &ExportGuard{
		provider: provider,
		audit:    audit,
		logger:   logger,
	}
}

// RequestExport runs one export attempt end to end and returns the reveal
// URL on success. Each call is single-shot; nothing about the attempt
// persists beyond its audit entries.
func (g *ExportGuard) RequestExport(ctx context.Context, userID string, target models.LinkedAccount, accessToken, ipAddress string) (string, error) {
	account, err := g.resolveTarget(ctx, userID, target, ipAddress)
	if err != nil {
		return "", err
	}

	if auditErr := g.audit.Write(ctx, models.AuditLogEntry{
		UserID:    userID,
		Action:    models.AuditActionExportRequested,
		IPAddress: ipAddress,
		Details: map[string]interface{}{
			"chain":   string(account.ChainType),
			"address": account.Address,
		},
	}); auditErr != nil {
		g.logger.WithError(auditErr).WithField("user_id", userID).Error("export blocked: audit write failed")
		return "", errors.NewInternalError("export request could not be audited", auditErr)
	}

	claims, err := g.provider.VerifyAccessToken(ctx, accessToken)
	if err != nil || claims.UserID != userID {
		g.refuse(ctx, userID, account, ipAddress, "token verification failed")
		return "", errors.NewUnauthorizedError("access token verification failed")
	}
	if !claims.ExpiresAt.IsZero() && claims.ExpiresAt.Before(time.Now()) {
		g.refuse(ctx, userID, account, ipAddress, "token expired")
		return "", errors.NewUnauthorizedError("access token expired")
	}

	// The authorization is on the record before the reveal location leaves
	// this function.
	if auditErr := g.audit.Write(ctx, models.AuditLogEntry{
		UserID:    userID,
		Action:    models.AuditActionExportAuthorized,
		IPAddress: ipAddress,
		Details: map[string]interface{}{
			"chain":   string(account.ChainType),
			"address": account.Address,
		},
	}); auditErr != nil {
		g.logger.WithError(auditErr).WithField("user_id", userID).Error("export blocked: authorization audit write failed")
		return "", errors.NewInternalError("export authorization could not be audited", auditErr)
	}

	return g.provider.RevealURL(account), nil
}

// resolveTarget enforces the embedded-only rule, substituting an embedded
// same-chain sibling for an external selection when one exists.
func (g *ExportGuard) resolveTarget(ctx context.Context, userID string, target models.LinkedAccount, ipAddress string) (models.LinkedAccount, error) {
	if target.CustodyClass == types.CustodyEmbedded {
		return target, nil
	}

	linked, err := g.provider.ListLinkedAccounts(ctx, userID)
	if err != nil {
		return models.LinkedAccount{}, errors.NewInternalError("failed to list linked accounts", err)
	}
	if sibling, ok := pickByCustody(linked, target.ChainType, types.CustodyEmbedded); ok {
		return sibling, nil
	}

	g.refuse(ctx, userID, target, ipAddress, "no embedded account for chain")
	return models.LinkedAccount{}, errors.NewNotEmbeddedError(target.ChainType)
}

func (g *ExportGuard) refuse(ctx context.Context, userID string, account models.LinkedAccount, ipAddress, reason string) {
	if err := g.audit.Write(ctx, models.AuditLogEntry{
		UserID:    userID,
		Action:    models.AuditActionExportRefused,
		IPAddress: ipAddress,
		Details: map[string]interface{}{
			"chain":   string(account.ChainType),
			"address": account.Address,
			"reason":  reason,
		},
	}); err != nil {
		g.logger.WithError(err).WithField("user_id", userID).Error("failed to audit export refusal")
	}
}
