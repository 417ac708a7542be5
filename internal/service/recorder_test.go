package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-hub/internal/models"
	"github.com/wallet-hub/internal/types"
)

func testIntent(key string) models.TransferIntent {
	txHash := "0xdeadbeef"
	return models.TransferIntent{
		RecipientAddress: testRecipient,
		Amount:           decimal.RequireFromString("1.5"),
		Currency:         "ETH",
		IdempotencyKey:   key,
		TxHash:           &txHash,
	}
}

func TestRecorder_RecordOnce(t *testing.T) {
	ledger := newMockLedger()
	ledger.addresses[testRecipient] = "user-2"
	audit := &mockAuditSink{}
	notifier := &mockNotifier{}
	recorder := NewRecorder(ledger, audit, notifier, testLogger())

	recorded, cached, err := recorder.Record(context.Background(), "user-1", testIntent("key-1"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "user-2", recorded.ReceiverID)
	assert.Equal(t, types.StatusPending, recorded.Status)
	assert.Len(t, audit.actions(), 1)
	assert.Equal(t, 1, notifier.count())
}

func TestRecorder_DuplicateKeyReturnsExistingRow(t *testing.T) {
	ledger := newMockLedger()
	ledger.addresses[testRecipient] = "user-2"
	audit := &mockAuditSink{}
	notifier := &mockNotifier{}
	recorder := NewRecorder(ledger, audit, notifier, testLogger())
	ctx := context.Background()

	first, cached, err := recorder.Record(ctx, "user-1", testIntent("key-1"))
	require.NoError(t, err)
	require.False(t, cached)

	second, cached, err := recorder.Record(ctx, "user-1", testIntent("key-1"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.ID, second.ID)

	// No second audit entry, no second notification.
	assert.Len(t, audit.actions(), 1)
	assert.Equal(t, 1, notifier.count())
	assert.Len(t, ledger.byKey, 1)
}

func TestRecorder_DistinctKeysRecordSeparately(t *testing.T) {
	ledger := newMockLedger()
	ledger.addresses[testRecipient] = "user-2"
	recorder := NewRecorder(ledger, &mockAuditSink{}, &mockNotifier{}, testLogger())
	ctx := context.Background()

	_, _, err := recorder.Record(ctx, "user-1", testIntent("key-1"))
	require.NoError(t, err)
	_, _, err = recorder.Record(ctx, "user-1", testIntent("key-2"))
	require.NoError(t, err)

	assert.Len(t, ledger.byKey, 2)
}

func TestRecorder_UnresolvableRecipientFails(t *testing.T) {
	ledger := newMockLedger()
	recorder := NewRecorder(ledger, &mockAuditSink{}, &mockNotifier{}, testLogger())

	_, _, err := recorder.Record(context.Background(), "user-1", testIntent("key-1"))
	require.Error(t, err)
	assert.Empty(t, ledger.byKey)
}

func TestRecorder_ExplicitRecipientUserSkipsResolution(t *testing.T) {
	ledger := newMockLedger()
	recorder := NewRecorder(ledger, &mockAuditSink{}, &mockNotifier{}, testLogger())

	intent := testIntent("key-1")
	receiver := "user-9"
	intent.RecipientUserID = &receiver

	recorded, _, err := recorder.Record(context.Background(), "user-1", intent)
	require.NoError(t, err)
	assert.Equal(t, "user-9", recorded.ReceiverID)
}

func TestRecorder_RequiresKeyAndHash(t *testing.T) {
	ledger := newMockLedger()
	ledger.addresses[testRecipient] = "user-2"
	recorder := NewRecorder(ledger, &mockAuditSink{}, &mockNotifier{}, testLogger())
	ctx := context.Background()

	intent := testIntent("")
	_, _, err := recorder.Record(ctx, "user-1", intent)
	require.Error(t, err)

	intent = testIntent("key-1")
	intent.TxHash = nil
	_, _, err = recorder.Record(ctx, "user-1", intent)
	require.Error(t, err)
}
