package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-hub/internal/errors"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

func validClaims(userID string) *identity.TokenClaims {
	return &identity.TokenClaims{
		UserID:    userID,
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestExportGuard_EmbeddedAccountDiscloses(t *testing.T) {
	provider := &mockProvider{
		claims:    validClaims("user-1"),
		revealURL: "https://custody.example/reveal/abc",
	}
	audit := &mockAuditSink{}
	guard := NewExportGuard(provider, audit, testLogger())

	target := models.LinkedAccount{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded}

	url, err := guard.RequestExport(context.Background(), "user-1", target, "token", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "https://custody.example/reveal/abc", url)

	// Both the request and the authorization are on the audit trail, in
	// that order, before the URL was returned.
	assert.Equal(t, []string{"key_export_requested", "key_export_authorized"}, audit.actions())
}

func TestExportGuard_ExternalSelectionSubstitutesSibling(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "0xconnected", ChainType: types.ChainEthereum, CustodyClass: types.CustodyConnected},
			{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded},
		},
		claims:    validClaims("user-1"),
		revealURL: "https://custody.example/reveal/emb-eth",
	}
	audit := &mockAuditSink{}
	guard := NewExportGuard(provider, audit, testLogger())

	target := models.LinkedAccount{Address: "0xconnected", ChainType: types.ChainEthereum, CustodyClass: types.CustodyConnected}

	url, err := guard.RequestExport(context.Background(), "user-1", target, "token", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "https://custody.example/reveal/emb-eth", url)

	// The audit trail names the substituted embedded account, not the
	// external selection.
	require.NotEmpty(t, audit.entries)
	assert.Equal(t, "emb-eth", audit.entries[0].Details["address"])
}

func TestExportGuard_NoSiblingFailsClosedAndAudits(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "0xconnected", ChainType: types.ChainEthereum, CustodyClass: types.CustodyConnected},
		},
		claims: validClaims("user-1"),
	}
	audit := &mockAuditSink{}
	guard := NewExportGuard(provider, audit, testLogger())

	target := models.LinkedAccount{Address: "0xconnected", ChainType: types.ChainEthereum, CustodyClass: types.CustodyConnected}

	_, err := guard.RequestExport(context.Background(), "user-1", target, "token", "10.0.0.1")
	require.Error(t, err)

	var categorized *errors.CategorizedError
	require.ErrorAs(t, err, &categorized)
	assert.Equal(t, "EXPORT_NOT_SUPPORTED", categorized.Code)
	assert.Equal(t, []string{"key_export_refused"}, audit.actions())
}

func TestExportGuard_TokenRejectionRefuses(t *testing.T) {
	provider := &mockProvider{verifyErr: identity.ErrTokenRejected}
	audit := &mockAuditSink{}
	guard := NewExportGuard(provider, audit, testLogger())

	target := models.LinkedAccount{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded}

	_, err := guard.RequestExport(context.Background(), "user-1", target, "bad-token", "10.0.0.1")
	require.Error(t, err)

	var categorized *errors.CategorizedError
	require.ErrorAs(t, err, &categorized)
	assert.Equal(t, "UNAUTHORIZED", categorized.Code)
	assert.Equal(t, []string{"key_export_requested", "key_export_refused"}, audit.actions())
}

func TestExportGuard_TokenForOtherUserRefuses(t *testing.T) {
	provider := &mockProvider{claims: validClaims("someone-else")}
	audit := &mockAuditSink{}
	guard := NewExportGuard(provider, audit, testLogger())

	target := models.LinkedAccount{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded}

	_, err := guard.RequestExport(context.Background(), "user-1", target, "token", "10.0.0.1")
	require.Error(t, err)
	assert.Contains(t, audit.actions(), "key_export_refused")
}

func TestExportGuard_AuditFailureBlocksDisclosure(t *testing.T) {
	provider := &mockProvider{
		claims:    validClaims("user-1"),
		revealURL: "https://custody.example/reveal/abc",
	}
	audit := &mockAuditSink{writeErr: context.DeadlineExceeded}
	guard := NewExportGuard(provider, audit, testLogger())

	target := models.LinkedAccount{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded}

	url, err := guard.RequestExport(context.Background(), "user-1", target, "token", "10.0.0.1")
	require.Error(t, err)
	assert.Empty(t, url)
}
