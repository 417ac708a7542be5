package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/wallet-hub/internal/adapter"
	"github.com/wallet-hub/internal/identity"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/storage"
	"github.com/wallet-hub/internal/types"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

func testSnapshotCache(t *testing.T) *storage.SnapshotCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return storage.NewSnapshotCache(storage.NewRedisCacheFromClient(client), 20*time.Second)
}

// Mock identity provider for testing
type mockProvider struct {
	accounts       []models.LinkedAccount
	listErr        error
	signer         identity.Signer
	signerErr      error
	claims         *identity.TokenClaims
	verifyErr      error
	revealURL      string
	signerRequests []models.LinkedAccount
}

func (m *mockProvider) ListLinkedAccounts(ctx context.Context, userID string) ([]models.LinkedAccount, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.accounts, nil
}

func (m *mockProvider) GetSigner(ctx context.Context, account models.LinkedAccount) (identity.Signer, error) {
	m.signerRequests = append(m.signerRequests, account)
	if m.signerErr != nil {
		return nil, m.signerErr
	}
	return m.signer, nil
}

func (m *mockProvider) VerifyAccessToken(ctx context.Context, token string) (*identity.TokenClaims, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return m.claims, nil
}

func (m *mockProvider) RevealURL(account models.LinkedAccount) string {
	return m.revealURL
}

// Mock signer for testing
type mockSigner struct {
	txHash     string
	signErr    error
	balance    decimal.Decimal
	balanceErr error
	signCalls  int
}

func (m *mockSigner) SignAndBroadcast(ctx context.Context, req identity.SignRequest) (string, error) {
	m.signCalls++
	if m.signErr != nil {
		return "", m.signErr
	}
	return m.txHash, nil
}

func (m *mockSigner) Balance(ctx context.Context) (decimal.Decimal, error) {
	if m.balanceErr != nil {
		return decimal.Zero, m.balanceErr
	}
	return m.balance, nil
}

// Mock ledger store for testing. Implements LedgerReader, LedgerWriter, and
// SideEffectStore backed by in-memory maps.
type mockLedger struct {
	mu        sync.Mutex
	history   []models.HistoryEntry
	listErr   error
	byKey     map[string]*models.LedgerTransaction
	recordErr error
	addresses map[string]string
	contacts  []*models.Contact
	templates []*models.TransferTemplate
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		byKey:     make(map[string]*models.LedgerTransaction),
		addresses: make(map[string]string),
	}
}

func (m *mockLedger) ListForUser(ctx context.Context, userID, currency string, limit int) ([]models.HistoryEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.history, nil
}

func (m *mockLedger) Record(ctx context.Context, tx *models.LedgerTransaction) (*models.LedgerTransaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return nil, false, m.recordErr
	}
	if existing, ok := m.byKey[tx.IdempotencyKey]; ok {
		return existing, true, nil
	}
	stored := *tx
	stored.ID = "tx-" + tx.IdempotencyKey
	stored.CreatedAt = time.Now().UTC()
	m.byKey[tx.IdempotencyKey] = &stored
	return &stored, false, nil
}

func (m *mockLedger) ResolveUserByAddress(ctx context.Context, address string) (string, error) {
	if userID, ok := m.addresses[address]; ok {
		return userID, nil
	}
	return "", storage.ErrTransactionNotFound
}

func (m *mockLedger) SaveContact(ctx context.Context, contact *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, contact)
	return nil
}

func (m *mockLedger) SaveTemplate(ctx context.Context, template *models.TransferTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, template)
	return nil
}

// Mock audit sink for testing
type mockAuditSink struct {
	mu       sync.Mutex
	entries  []models.AuditLogEntry
	writeErr error
}

func (m *mockAuditSink) Write(ctx context.Context, entry models.AuditLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAuditSink) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	actions := make([]string, len(m.entries))
	for i, entry := range m.entries {
		actions[i] = entry.Action
	}
	return actions
}

// Mock notifier for testing
type mockNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func (m *mockNotifier) Enqueue(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, notification)
	return nil
}

func (m *mockNotifier) EnqueueAsync(notification *models.Notification) {
	_ = m.Enqueue(context.Background(), notification)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

// Mock chain adapter for testing
type mockAdapter struct {
	chain        types.ChainType
	balance      types.BalanceResult
	history      []models.HistoryEntry
	balanceCalls int
	historyCalls int
}

func (m *mockAdapter) GetBalance(ctx context.Context, address string) types.BalanceResult {
	m.balanceCalls++
	return m.balance
}

func (m *mockAdapter) GetHistory(ctx context.Context, address string, limit int) []models.HistoryEntry {
	m.historyCalls++
	return m.history
}

func (m *mockAdapter) ValidateAddress(address string) bool {
	if m.chain == types.ChainEthereum {
		return len(address) == 42 && address[:2] == "0x"
	}
	return len(address) >= 32
}

func (m *mockAdapter) ChainType() types.ChainType {
	return m.chain
}

func testRegistry(adapters ...adapter.ChainAdapter) *adapter.Registry {
	registry := adapter.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	return registry
}
