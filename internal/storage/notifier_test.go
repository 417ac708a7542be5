package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
)

func newTestNotifier(t *testing.T) (*RedisNotifier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	return NewRedisNotifier(NewRedisCacheFromClient(client), logger), mr
}

func TestRedisNotifier_Enqueue(t *testing.T) {
	notifier, mr := newTestNotifier(t)

	err := notifier.Enqueue(context.Background(), &models.Notification{
		UserID:  "user-2",
		Type:    "transfer_received",
		Title:   "You received 1.5 ETH",
		Message: "alice sent you 1.5 ETH",
	})
	require.NoError(t, err)

	raw, err := mr.Lpop(notificationQueueKey)
	require.NoError(t, err)

	var got models.Notification
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "user-2", got.UserID)
	assert.Equal(t, "transfer_received", got.Type)
}

func TestRedisNotifier_EnqueueOrder(t *testing.T) {
	notifier, mr := newTestNotifier(t)
	ctx := context.Background()

	require.NoError(t, notifier.Enqueue(ctx, &models.Notification{UserID: "u", Type: "first"}))
	require.NoError(t, notifier.Enqueue(ctx, &models.Notification{UserID: "u", Type: "second"}))

	// LPUSH prepends, so the consumer draining with RPOP sees FIFO order.
	raw, err := mr.RPop(notificationQueueKey)
	require.NoError(t, err)

	var got models.Notification
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, "first", got.Type)
}
