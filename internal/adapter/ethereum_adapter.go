package adapter

import (
	"context"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

var ethAddressPattern = regexp.MustCompile("^0x[a-fA-F0-9]{40}$")

// EthereumAdapter implements ChainAdapter for the EVM chain. Balances come
// from eth_getBalance via the RPC client; history comes from a
// block-explorer-style API because plain JSON-RPC has no per-address index.
// The client pointer is swapped on failover while reads run concurrently, so
// access goes through the mutex.
type EthereumAdapter struct {
	mu        sync.RWMutex
	client    *ethclient.Client
	endpoints *Endpoints
	explorer  *ExplorerClient
}

// NewEthereumAdapter creates a new Ethereum chain adapter.
func NewEthereumAdapter(endpoints *Endpoints, explorer *ExplorerClient) (*EthereumAdapter, error) {
	client, err := ethclient.Dial(endpoints.Current())
	if err != nil {
		return nil, NewAdapterError(types.ChainEthereum, "NewEthereumAdapter", err, map[string]interface{}{
			"rpcURL": endpoints.Current(),
		})
	}

	return &EthereumAdapter{
		client:    client,
		endpoints: endpoints,
		explorer:  explorer,
	}, nil
}

// GetBalance reads the native balance in wei and converts it using the
// chain's fixed decimal exponent. Provider failures degrade to the
// Unavailable sentinel.
func (a *EthereumAdapter) GetBalance(ctx context.Context, address string) types.BalanceResult {
	currency := types.ChainEthereum.NativeCurrency()
	if !a.ValidateAddress(address) {
		return types.UnavailableBalance(currency)
	}

	wei, err := a.rpcClient().BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		if shouldFailover(err) {
			if client, redialErr := a.redial(); redialErr == nil {
				if wei, err = client.BalanceAt(ctx, common.HexToAddress(address), nil); err == nil {
					return a.balanceResult(wei.String())
				}
			}
		}
		log.Printf("[Adapter:ethereum] Balance read failed for %s: %v", address, err)
		return types.UnavailableBalance(currency)
	}

	return a.balanceResult(wei.String())
}

func (a *EthereumAdapter) rpcClient() *ethclient.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

// redial fails over to the other endpoint and swaps in a fresh client.
func (a *EthereumAdapter) redial() (*ethclient.Client, error) {
	if err := a.endpoints.Failover(); err != nil {
		return nil, err
	}
	client, err := ethclient.Dial(a.endpoints.Current())
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.client = client
	a.mu.Unlock()
	return client, nil
}

func (a *EthereumAdapter) balanceResult(wei string) types.BalanceResult {
	amount, err := decimal.NewFromString(wei)
	if err != nil {
		return types.UnavailableBalance(types.ChainEthereum.NativeCurrency())
	}
	return types.BalanceResult{
		Amount:    amount.Shift(-types.ChainEthereum.Decimals()),
		Currency:  types.ChainEthereum.NativeCurrency(),
		Available: true,
		AsOf:      time.Now().UTC(),
	}
}

// GetHistory fetches recent transactions from the explorer API. Provider
// failures degrade to an empty list.
func (a *EthereumAdapter) GetHistory(ctx context.Context, address string, limit int) []models.HistoryEntry {
	if !a.ValidateAddress(address) {
		return []models.HistoryEntry{}
	}
	if a.explorer == nil {
		return []models.HistoryEntry{}
	}

	entries, err := a.explorer.ListTransactions(ctx, address, limit)
	if err != nil {
		log.Printf("[Adapter:ethereum] History fetch failed for %s: %v", address, err)
		return []models.HistoryEntry{}
	}
	return entries
}

// ValidateAddress checks if address format is valid for Ethereum
func (a *EthereumAdapter) ValidateAddress(address string) bool {
	// Ethereum addresses are 42 characters: 0x + 40 hex characters
	return ethAddressPattern.MatchString(address)
}

// ChainType returns the chain identifier
func (a *EthereumAdapter) ChainType() types.ChainType {
	return types.ChainEthereum
}

// Close closes the Ethereum client connection
func (a *EthereumAdapter) Close() {
	if client := a.rpcClient(); client != nil {
		client.Close()
	}
}
