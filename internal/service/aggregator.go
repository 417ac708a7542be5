package service

import (
	"context"
	"sort"
	"time"

	"github.com/wallet-hub/internal/adapter"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/storage"
	"github.com/wallet-hub/internal/types"
)

// LedgerReader reads the internal ledger's history view.
type LedgerReader interface {
	ListForUser(ctx context.Context, userID, currency string, limit int) ([]models.HistoryEntry, error)
}

// Aggregator assembles the wallet snapshot (balance + unified history) for
// an active account. Each refresh is idempotent and safe to run concurrently
// for the same account.
//
// Partial failure is the normal case, not an error: the ledger read runs
// first and its results are always kept; a dead RPC degrades the balance to
// the Unavailable sentinel and contributes no chain history.
type Aggregator struct {
	registry     *adapter.Registry
	ledger       LedgerReader
	provider     identity.Provider
	cache        *storage.SnapshotCache
	historyLimit int
	logger       *logging.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(registry *adapter.Registry, ledger LedgerReader, provider identity.Provider, cache *storage.SnapshotCache, historyLimit int, logger *logging.Logger) *Aggregator {
	return &Aggregator{
		registry:     registry,
		ledger:       ledger,
		provider:     provider,
		cache:        cache,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Snapshot returns the cached snapshot for the account when one exists,
// refreshing otherwise.
func (a *Aggregator) Snapshot(ctx context.Context, userID string, active models.ActiveAccount) (*storage.WalletSnapshot, error) {
	if cached, err := a.cache.Get(ctx, userID, active.ChainType); err == nil {
		return cached, nil
	}
	return a.Refresh(ctx, userID, active)
}

// Refresh rebuilds the snapshot from the ledger and the chain, then caches
// it.
func (a *Aggregator) Refresh(ctx context.Context, userID string, active models.ActiveAccount) (*storage.WalletSnapshot, error) {
	currency := active.ChainType.NativeCurrency()

	ledgerHistory, err := a.ledger.ListForUser(ctx, userID, currency, a.historyLimit)
	if err != nil {
		a.logger.WithError(err).WithField("user_id", userID).Warn("ledger history read failed")
		ledgerHistory = nil
	}

	chainAdapter, err := a.registry.ForChain(active.ChainType)
	if err != nil {
		// No adapter for the chain; the ledger view still renders.
		snapshot := &storage.WalletSnapshot{
			Balance: types.UnavailableBalance(currency),
			History: ledgerHistory,
		}
		a.store(ctx, userID, active.ChainType, snapshot)
		return snapshot, nil
	}

	snapshot := &storage.WalletSnapshot{
		Balance: a.readBalance(ctx, active, chainAdapter),
		History: mergeHistory(ledgerHistory, chainAdapter.GetHistory(ctx, active.Address, a.historyLimit)),
	}

	a.store(ctx, userID, active.ChainType, snapshot)
	return snapshot, nil
}

// ClearChain drops the cached snapshot for a chain. Called on chain switch
// before the new chain's fetch resolves, and after a completed transfer.
func (a *Aggregator) ClearChain(ctx context.Context, userID string, chain types.ChainType) {
	if err := a.cache.Clear(ctx, userID, chain); err != nil {
		a.logger.WithError(err).WithField("user_id", userID).Warn("failed to clear snapshot cache")
	}
}

// readBalance reads the native balance. Connected accounts go through their
// own signer provider; everything else reads the public RPC adapter.
func (a *Aggregator) readBalance(ctx context.Context, active models.ActiveAccount, chainAdapter adapter.ChainAdapter) types.BalanceResult {
	currency := active.ChainType.NativeCurrency()

	if active.CustodyClass == types.CustodyConnected {
		signer, err := a.provider.GetSigner(ctx, active.LinkedAccount)
		if err == nil {
			amount, balanceErr := signer.Balance(ctx)
			if balanceErr == nil {
				return types.BalanceResult{
					Amount:    amount,
					Currency:  currency,
					Available: true,
					AsOf:      time.Now().UTC(),
				}
			}
			a.logger.WithError(balanceErr).WithField("address", active.Address).Warn("signer balance read failed")
			return types.UnavailableBalance(currency)
		}
		a.logger.WithError(err).WithField("address", active.Address).Warn("signer lookup failed for balance read")
		return types.UnavailableBalance(currency)
	}

	return chainAdapter.GetBalance(ctx, active.Address)
}

func (a *Aggregator) store(ctx context.Context, userID string, chain types.ChainType, snapshot *storage.WalletSnapshot) {
	if err := a.cache.Set(ctx, userID, chain, snapshot); err != nil {
		a.logger.WithError(err).WithField("user_id", userID).Warn("failed to cache snapshot")
	}
}

// mergeHistory overlays on-chain entries onto the ledger view, deduplicating
// by transaction hash. Ledger metadata (names, memos) wins; on-chain
// confirmation status wins. The result is sorted newest first.
func mergeHistory(ledgerEntries, chainEntries []models.HistoryEntry) []models.HistoryEntry {
	merged := make([]models.HistoryEntry, len(ledgerEntries))
	copy(merged, ledgerEntries)

	byHash := make(map[string]int, len(merged))
	for i, entry := range merged {
		if entry.Hash != "" {
			byHash[entry.Hash] = i
		}
	}

	for _, chainEntry := range chainEntries {
		if i, ok := byHash[chainEntry.Hash]; ok && chainEntry.Hash != "" {
			merged[i].MergeInto(chainEntry)
			continue
		}
		if chainEntry.Hash != "" {
			byHash[chainEntry.Hash] = len(merged)
		}
		merged = append(merged, chainEntry)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	return merged
}
