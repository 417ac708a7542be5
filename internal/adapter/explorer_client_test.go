package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-hub/internal/types"
)

const testEthAddress = "0x1111111111111111111111111111111111111111"

func newExplorerTestServer(t *testing.T, response explorerResponse) *ExplorerClient {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "txlist", r.URL.Query().Get("action"))
		assert.Equal(t, testEthAddress, r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(server.Close)

	return NewExplorerClient(server.URL, "test-key")
}

func TestListTransactions(t *testing.T) {
	client := newExplorerTestServer(t, explorerResponse{
		Status: "1",
		Result: []explorerTransaction{
			{
				Hash:            "0xaaa",
				TimeStamp:       "1700000200",
				From:            testEthAddress,
				To:              "0x2222222222222222222222222222222222222222",
				Value:           "1500000000000000000",
				IsError:         "0",
				TxReceiptStatus: "1",
			},
			{
				Hash:            "0xbbb",
				TimeStamp:       "1700000100",
				From:            "0x3333333333333333333333333333333333333333",
				To:              testEthAddress,
				Value:           "250000000000000000",
				IsError:         "0",
				TxReceiptStatus: "1",
			},
			{
				Hash:            "0xccc",
				TimeStamp:       "1700000000",
				From:            testEthAddress,
				To:              "0x4444444444444444444444444444444444444444",
				Value:           "0",
				IsError:         "1",
				TxReceiptStatus: "0",
			},
		},
	})

	entries, err := client.ListTransactions(context.Background(), testEthAddress, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	out := entries[0]
	assert.Equal(t, types.DirectionOut, out.Direction)
	assert.Equal(t, "1.5", out.Amount.String())
	assert.Equal(t, "0x2222222222222222222222222222222222222222", out.CounterpartyAddress)
	assert.True(t, out.Confirmed)

	in := entries[1]
	assert.Equal(t, types.DirectionIn, in.Direction)
	assert.Equal(t, "0x3333333333333333333333333333333333333333", in.CounterpartyAddress)
	assert.Equal(t, "0.25", in.Amount.String())

	failed := entries[2]
	assert.False(t, failed.Confirmed, "isError=1 maps to unconfirmed")
	assert.Equal(t, types.StatusFailed, failed.Status)
}

func TestListTransactions_Empty(t *testing.T) {
	client := newExplorerTestServer(t, explorerResponse{
		Status:  "0",
		Message: "No transactions found",
		Result:  []explorerTransaction{},
	})

	entries, err := client.ListTransactions(context.Background(), testEthAddress, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEthereumValidateAddress(t *testing.T) {
	adapter := &EthereumAdapter{}

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"valid lowercase", "0x1234567890abcdef1234567890abcdef12345678", true},
		{"valid mixed case", "0x1234567890ABCDEF1234567890abcdef12345678", true},
		{"missing prefix", "1234567890abcdef1234567890abcdef12345678", false},
		{"too short", "0x1234", false},
		{"non-hex", "0xzzzz567890abcdef1234567890abcdef12345678", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.ValidateAddress(tt.address))
		})
	}
}

func TestEndpointsFailover(t *testing.T) {
	endpoints, err := NewEndpoints("http://primary", "http://secondary")
	require.NoError(t, err)
	assert.Equal(t, "http://primary", endpoints.Current())

	require.NoError(t, endpoints.Failover())
	assert.Equal(t, "http://secondary", endpoints.Current())

	require.NoError(t, endpoints.Failover())
	assert.Equal(t, "http://primary", endpoints.Current())
}

func TestEndpointsFailover_NoSecondary(t *testing.T) {
	endpoints, err := NewEndpoints("http://primary", "")
	require.NoError(t, err)

	assert.ErrorIs(t, endpoints.Failover(), ErrProviderUnavailable)
}
