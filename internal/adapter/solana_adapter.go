package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
	"golang.org/x/time/rate"
)

var solAddressPattern = regexp.MustCompile("^[1-9A-HJ-NP-Za-km-z]{32,44}$")

// SolanaAdapter implements ChainAdapter for Solana using its native JSON-RPC
// dialect: getBalance returns lamports, getSignaturesForAddress returns the
// most recent signatures with an err field marking failed transactions.
type SolanaAdapter struct {
	endpoints *Endpoints
	client    *http.Client
	limiter   *rate.Limiter
}

// NewSolanaAdapter creates a new Solana chain adapter.
func NewSolanaAdapter(endpoints *Endpoints) *SolanaAdapter {
	return &SolanaAdapter{
		endpoints: endpoints,
		client:    &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(5), 5),
	}
}

// rpcError is the JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// getBalanceResult is the result of Solana's getBalance call.
type getBalanceResult struct {
	Value *uint64 `json:"value"`
}

// signatureInfo is one row of getSignaturesForAddress.
type signatureInfo struct {
	Signature string          `json:"signature"`
	Err       json.RawMessage `json:"err"`
	BlockTime *int64          `json:"blockTime"`
}

// call performs a single JSON-RPC request against the current endpoint and
// decodes the result field into out.
func (a *SolanaAdapter) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	requestBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoints.Current(), bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if shouldFailover(err) && a.endpoints.Failover() == nil {
			log.Printf("[Adapter:solana] Failing over to %s", a.endpoints.Current())
			return a.call(ctx, method, params, out)
		}
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("rpc error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}

	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}

// GetBalance reads the lamport balance and converts it using the chain's
// fixed decimal exponent. A result without a value field reads as zero;
// provider failures degrade to the Unavailable sentinel.
func (a *SolanaAdapter) GetBalance(ctx context.Context, address string) types.BalanceResult {
	currency := types.ChainSolana.NativeCurrency()
	if !a.ValidateAddress(address) {
		return types.UnavailableBalance(currency)
	}

	var result getBalanceResult
	if err := a.call(ctx, "getBalance", []interface{}{address}, &result); err != nil {
		log.Printf("[Adapter:solana] Balance read failed for %s: %v", address, err)
		return types.UnavailableBalance(currency)
	}

	var lamports uint64
	if result.Value != nil {
		lamports = *result.Value
	}

	return types.BalanceResult{
		Amount:    decimal.NewFromUint64(lamports).Shift(-types.ChainSolana.Decimals()),
		Currency:  currency,
		Available: true,
		AsOf:      time.Now().UTC(),
	}
}

// GetHistory lists the most recent signatures for an address. A signature
// with no err field is confirmed; amounts and counterparties are not part of
// the signature listing and stay empty. Provider failures degrade to an
// empty list.
func (a *SolanaAdapter) GetHistory(ctx context.Context, address string, limit int) []models.HistoryEntry {
	if !a.ValidateAddress(address) {
		return []models.HistoryEntry{}
	}

	var signatures []signatureInfo
	params := []interface{}{address, map[string]interface{}{"limit": limit}}
	if err := a.call(ctx, "getSignaturesForAddress", params, &signatures); err != nil {
		log.Printf("[Adapter:solana] History fetch failed for %s: %v", address, err)
		return []models.HistoryEntry{}
	}

	entries := make([]models.HistoryEntry, 0, len(signatures))
	for _, sig := range signatures {
		confirmed := len(sig.Err) == 0 || string(sig.Err) == "null"
		status := types.StatusCompleted
		if !confirmed {
			status = types.StatusFailed
		}

		var timestamp time.Time
		if sig.BlockTime != nil {
			timestamp = time.Unix(*sig.BlockTime, 0).UTC()
		}

		entries = append(entries, models.HistoryEntry{
			Hash:      sig.Signature,
			Amount:    decimal.Zero,
			Currency:  types.ChainSolana.NativeCurrency(),
			Confirmed: confirmed,
			Status:    status,
			Timestamp: timestamp,
			Source:    types.SourceChain,
		})
	}

	return entries
}

// ValidateAddress checks if address format is valid for Solana
func (a *SolanaAdapter) ValidateAddress(address string) bool {
	// Solana addresses are base58-encoded 32-byte keys
	return solAddressPattern.MatchString(address)
}

// ChainType returns the chain identifier
func (a *SolanaAdapter) ChainType() types.ChainType {
	return types.ChainSolana
}
