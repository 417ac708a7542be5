package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
	"golang.org/x/time/rate"
)

// ExplorerClient fetches per-address transaction history from an
// Etherscan-style block explorer API. A global limiter keeps requests inside
// the explorer's free-tier budget.
type ExplorerClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewExplorerClient creates an explorer client with a 3 req/sec budget.
func NewExplorerClient(baseURL, apiKey string) *ExplorerClient {
	return &ExplorerClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(3), 3),
	}
}

// explorerTransaction is one row of the explorer's txlist response.
type explorerTransaction struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	IsError         string `json:"isError"`
	TxReceiptStatus string `json:"txreceipt_status"`
	Confirmations   string `json:"confirmations"`
}

// explorerResponse is the explorer's JSON envelope.
type explorerResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Result  []explorerTransaction `json:"result"`
}

// ListTransactions fetches the most recent transactions involving an address,
// newest first. The isError/txreceipt_status flags are folded into the
// unified Confirmed field.
func (c *ExplorerClient) ListTransactions(ctx context.Context, address string, limit int) ([]models.HistoryEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(limit))
	params.Set("sort", "desc")
	if c.apiKey != "" {
		params.Set("apikey", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read explorer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var envelope explorerResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse explorer response: %w", err)
	}

	// Status "0" with message "No transactions found" is an empty result,
	// not an error.
	if envelope.Status != "1" && len(envelope.Result) == 0 {
		return []models.HistoryEntry{}, nil
	}

	entries := make([]models.HistoryEntry, 0, len(envelope.Result))
	for _, tx := range envelope.Result {
		entries = append(entries, convertExplorerTransaction(tx, address))
	}

	return entries, nil
}

// convertExplorerTransaction maps one explorer row to a unified history
// entry relative to the queried address.
func convertExplorerTransaction(tx explorerTransaction, address string) models.HistoryEntry {
	direction := types.DirectionOut
	counterparty := tx.To
	if !equalHexAddress(tx.From, address) {
		direction = types.DirectionIn
		counterparty = tx.From
	}

	amount := decimal.Zero
	if value, err := decimal.NewFromString(tx.Value); err == nil {
		amount = value.Shift(-types.ChainEthereum.Decimals())
	}

	var timestamp time.Time
	if unix, err := strconv.ParseInt(tx.TimeStamp, 10, 64); err == nil {
		timestamp = time.Unix(unix, 0).UTC()
	}

	// isError "0" and a successful receipt mean the transaction executed.
	confirmed := tx.IsError == "0" && tx.TxReceiptStatus != "0"
	status := types.StatusCompleted
	if tx.IsError != "0" || tx.TxReceiptStatus == "0" {
		status = types.StatusFailed
		confirmed = false
	}

	return models.HistoryEntry{
		Hash:                tx.Hash,
		Direction:           direction,
		Amount:              amount,
		Currency:            types.ChainEthereum.NativeCurrency(),
		CounterpartyAddress: counterparty,
		Confirmed:           confirmed,
		Status:              status,
		Timestamp:           timestamp,
		Source:              types.SourceChain,
	}
}

func equalHexAddress(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
