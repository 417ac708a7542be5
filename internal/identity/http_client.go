package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

// HTTPProvider implements Provider against the custody provider's REST API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPProviderConfig configures the custody provider client.
type HTTPProviderConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPProvider creates a custody provider client.
func NewHTTPProvider(cfg *HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("identity provider base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// linkedAccountPayload mirrors the provider's account representation.
type linkedAccountPayload struct {
	Address      string `json:"address"`
	ChainType    string `json:"chainType"`
	CustodyClass string `json:"custodyClass"`
}

// ListLinkedAccounts fetches the provider's account list for a user.
func (p *HTTPProvider) ListLinkedAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error) {
	var payload struct {
		Accounts []linkedAccountPayload `json:"accounts"`
	}
	path := fmt.Sprintf("/v1/users/%s/accounts", url.PathEscape(userID))
	if err := p.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to list linked accounts: %w", err)
	}

	accounts := make([]models.LinkedAccount, 0, len(payload.Accounts))
	for _, a := range payload.Accounts {
		chain := types.ChainType(a.ChainType)
		if !chain.Valid() {
			continue
		}
		accounts = append(accounts, models.LinkedAccount{
			Address:      a.Address,
			ChainType:    chain,
			CustodyClass: types.CustodyClass(a.CustodyClass),
		})
	}
	return accounts, nil
}

// GetSigner returns a provider-backed signer for connected and embedded
// accounts. Linked read-only accounts have no signer.
func (p *HTTPProvider) GetSigner(ctx context.Context, account models.LinkedAccount) (Signer, error) {
	switch account.CustodyClass {
	case types.CustodyConnected, types.CustodyEmbedded:
		return &providerSigner{provider: p, account: account}, nil
	default:
		return nil, ErrNoSigner
	}
}

// VerifyAccessToken performs a live verification call for the token.
func (p *HTTPProvider) VerifyAccessToken(ctx context.Context, token string) (*TokenClaims, error) {
	body := map[string]string{"token": token}
	var payload struct {
		Valid  bool        `json:"valid"`
		Claims TokenClaims `json:"claims"`
	}
	if err := p.do(ctx, http.MethodPost, "/v1/tokens/verify", body, &payload); err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !payload.Valid {
		return nil, ErrTokenRejected
	}
	return &payload.Claims, nil
}

// RevealURL returns the provider-hosted reveal location for an account.
func (p *HTTPProvider) RevealURL(account models.LinkedAccount) string {
	return fmt.Sprintf("%s/v1/accounts/%s/reveal", p.baseURL, url.PathEscape(account.Address))
}

// do performs one JSON request against the provider API.
func (p *HTTPProvider) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrTokenRejected
	case resp.StatusCode >= 400:
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse provider response: %w", err)
		}
	}
	return nil
}

// providerSigner signs through the custody provider's signing endpoint. For
// connected accounts the provider relays the request to the session signer,
// which may wait on human approval; no timeout is applied beyond the
// caller's context.
type providerSigner struct {
	provider *HTTPProvider
	account  models.LinkedAccount
}

// SignAndBroadcast submits the transfer for signing and broadcast.
func (s *providerSigner) SignAndBroadcast(ctx context.Context, req SignRequest) (string, error) {
	body := map[string]interface{}{
		"from":     req.From,
		"to":       req.To,
		"amount":   req.Amount.String(),
		"currency": req.Currency,
	}

	var payload struct {
		TxHash   string `json:"txHash"`
		Rejected bool   `json:"rejected"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/sign", url.PathEscape(s.account.Address))

	// The signing prompt can block on the user arbitrarily long; use a
	// client without the provider's default timeout.
	signer := &HTTPProvider{baseURL: s.provider.baseURL, apiKey: s.provider.apiKey, client: &http.Client{}}
	if err := signer.do(ctx, http.MethodPost, path, body, &payload); err != nil {
		return "", err
	}
	if payload.Rejected {
		return "", ErrSignerRejected
	}
	if payload.TxHash == "" {
		return "", fmt.Errorf("provider returned no transaction hash")
	}
	return payload.TxHash, nil
}

// Balance reads the balance through the provider's view of the account.
func (s *providerSigner) Balance(ctx context.Context) (decimal.Decimal, error) {
	var payload struct {
		Amount string `json:"amount"`
	}
	path := fmt.Sprintf("/v1/accounts/%s/balance", url.PathEscape(s.account.Address))
	if err := s.provider.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return decimal.Zero, err
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}
	return amount, nil
}
