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

const testSolanaAddress = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"

// newSolanaTestServer returns an adapter wired to a fake JSON-RPC backend.
func newSolanaTestServer(t *testing.T, handler func(method string, params []json.RawMessage) (interface{}, *rpcError)) (*SolanaAdapter, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		response := map[string]interface{}{"jsonrpc": "2.0", "id": 1}
		if rpcErr != nil {
			response["error"] = rpcErr
		} else {
			response["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(server.Close)

	endpoints, err := NewEndpoints(server.URL, "")
	require.NoError(t, err)

	return NewSolanaAdapter(endpoints), server
}

func TestSolanaGetBalance(t *testing.T) {
	adapter, _ := newSolanaTestServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "getBalance", method)
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
			"value":   uint64(2_500_000_000),
		}, nil
	})

	result := adapter.GetBalance(context.Background(), testSolanaAddress)

	assert.True(t, result.Available)
	assert.Equal(t, "SOL", result.Currency)
	assert.Equal(t, "2.5", result.Amount.String())
}

func TestSolanaGetBalance_MissingValueField(t *testing.T) {
	adapter, _ := newSolanaTestServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		// A malformed backend that omits the value field entirely.
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 100},
		}, nil
	})

	result := adapter.GetBalance(context.Background(), testSolanaAddress)

	assert.True(t, result.Available, "missing value reads as zero, not as an outage")
	assert.True(t, result.Amount.IsZero())
}

func TestSolanaGetBalance_RPCError(t *testing.T) {
	adapter, _ := newSolanaTestServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		return nil, &rpcError{Code: -32005, Message: "node is behind"}
	})

	result := adapter.GetBalance(context.Background(), testSolanaAddress)

	assert.False(t, result.Available)
}

func TestSolanaGetBalance_InvalidAddress(t *testing.T) {
	adapter, _ := newSolanaTestServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		t.Fatal("no RPC call expected for an invalid address")
		return nil, nil
	})

	result := adapter.GetBalance(context.Background(), "0xnot-a-solana-address")
	assert.False(t, result.Available)
}

func TestSolanaGetHistory(t *testing.T) {
	adapter, _ := newSolanaTestServer(t, func(method string, params []json.RawMessage) (interface{}, *rpcError) {
		assert.Equal(t, "getSignaturesForAddress", method)

		var opts map[string]interface{}
		require.Len(t, params, 2)
		require.NoError(t, json.Unmarshal(params[1], &opts))
		assert.Equal(t, float64(10), opts["limit"])

		return []map[string]interface{}{
			{"signature": "sig-ok", "err": nil, "blockTime": 1700000300},
			{"signature": "sig-failed", "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}, "blockTime": 1700000200},
			{"signature": "sig-no-time", "err": nil},
		}, nil
	})

	entries := adapter.GetHistory(context.Background(), testSolanaAddress, 10)

	require.Len(t, entries, 3)
	assert.True(t, entries[0].Confirmed)
	assert.Equal(t, types.StatusCompleted, entries[0].Status)
	assert.False(t, entries[1].Confirmed, "err field marks the transaction failed")
	assert.Equal(t, types.StatusFailed, entries[1].Status)
	assert.True(t, entries[2].Confirmed)
	assert.True(t, entries[2].Timestamp.IsZero())
	for _, e := range entries {
		assert.Equal(t, types.SourceChain, e.Source)
	}
}

func TestSolanaGetHistory_ProviderDown(t *testing.T) {
	endpoints, err := NewEndpoints("http://127.0.0.1:1", "")
	require.NoError(t, err)
	adapter := NewSolanaAdapter(endpoints)

	entries := adapter.GetHistory(context.Background(), testSolanaAddress, 10)
	assert.Empty(t, entries, "provider failures degrade to an empty list")
}

func TestSolanaValidateAddress(t *testing.T) {
	adapter := &SolanaAdapter{}

	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"valid base58", testSolanaAddress, true},
		{"too short", "abc", false},
		{"contains zero", "0" + testSolanaAddress[1:], false},
		{"hex address", "0x1234567890123456789012345678901234567890", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.ValidateAddress(tt.address))
		})
	}
}
