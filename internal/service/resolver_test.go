package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-hub/internal/errors"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

func TestResolveActive_PrefersConnected(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded},
		},
	}
	resolver := NewAccountResolver(provider, testLogger())

	session := []models.LinkedAccount{
		{Address: "0xconnected", ChainType: types.ChainEthereum, CustodyClass: types.CustodyConnected},
	}

	active, err := resolver.ResolveActive(context.Background(), "user-1", types.ChainEthereum, session)
	require.NoError(t, err)
	assert.Equal(t, "0xconnected", active.Address)
	assert.Equal(t, types.CustodyConnected, active.CustodyClass)
	assert.True(t, active.Signable)
}

func TestResolveActive_FallsBackToEmbedded(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "watch-only", ChainType: types.ChainSolana, CustodyClass: types.CustodyLinkedReadOnly},
			{Address: "emb-sol", ChainType: types.ChainSolana, CustodyClass: types.CustodyEmbedded},
		},
	}
	resolver := NewAccountResolver(provider, testLogger())

	active, err := resolver.ResolveActive(context.Background(), "user-1", types.ChainSolana, nil)
	require.NoError(t, err)
	assert.Equal(t, "emb-sol", active.Address)
	assert.True(t, active.Signable)
}

func TestResolveActive_FallsBackToReadOnly(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "watch-only", ChainType: types.ChainEthereum, CustodyClass: types.CustodyLinkedReadOnly},
		},
	}
	resolver := NewAccountResolver(provider, testLogger())

	active, err := resolver.ResolveActive(context.Background(), "user-1", types.ChainEthereum, nil)
	require.NoError(t, err)
	assert.Equal(t, "watch-only", active.Address)
	assert.False(t, active.Signable)
}

func TestResolveActive_NoAccountForChain(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "emb-eth", ChainType: types.ChainEthereum, CustodyClass: types.CustodyEmbedded},
		},
	}
	resolver := NewAccountResolver(provider, testLogger())

	// Accounts on another chain never stand in for the requested chain.
	_, err := resolver.ResolveActive(context.Background(), "user-1", types.ChainSolana, nil)
	require.Error(t, err)

	var categorized *errors.CategorizedError
	require.ErrorAs(t, err, &categorized)
	assert.Equal(t, "NO_ACCOUNT_FOR_CHAIN", categorized.Code)
}

func TestResolveActive_InvalidChain(t *testing.T) {
	resolver := NewAccountResolver(&mockProvider{}, testLogger())

	_, err := resolver.ResolveActive(context.Background(), "user-1", types.ChainType("dogecoin"), nil)
	require.Error(t, err)

	var categorized *errors.CategorizedError
	require.ErrorAs(t, err, &categorized)
	assert.Equal(t, "INVALID_PARAMETER", categorized.Code)
}

func TestResolveActive_SessionAccountWrongChainIgnored(t *testing.T) {
	provider := &mockProvider{
		accounts: []models.LinkedAccount{
			{Address: "emb-sol", ChainType: types.ChainSolana, CustodyClass: types.CustodyEmbedded},
		},
	}
	resolver := NewAccountResolver(provider, testLogger())

	session := []models.LinkedAccount{
		{Address: "0xconnected", ChainType: types.ChainEthereum, CustodyClass: types.CustodyConnected},
	}

	active, err := resolver.ResolveActive(context.Background(), "user-1", types.ChainSolana, session)
	require.NoError(t, err)
	assert.Equal(t, "emb-sol", active.Address)
}
