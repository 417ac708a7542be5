package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wallet-hub/internal/logging"
	"github.com/wallet-hub/internal/models"
)

const notificationQueueKey = "notifications:queue"

// Notifier enqueues user notifications for out-of-process delivery.
type Notifier interface {
	Enqueue(ctx context.Context, notification *models.Notification) error
	EnqueueAsync(notification *models.Notification)
}

// RedisNotifier pushes notifications onto a Redis list consumed by the
// delivery worker. Enqueue failures are delivery failures only; they never
// propagate into the transfer path.
type RedisNotifier struct {
	cache  *RedisCache
	logger *logging.Logger
}

// NewRedisNotifier creates a Redis-backed notifier.
func NewRedisNotifier(cache *RedisCache, logger *logging.Logger) *RedisNotifier {
	return &RedisNotifier{cache: cache, logger: logger}
}

// Enqueue pushes a notification onto the queue.
func (n *RedisNotifier) Enqueue(ctx context.Context, notification *models.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := n.cache.Client().LPush(ctx, notificationQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// EnqueueAsync enqueues without blocking the caller. Failures are logged
// and dropped.
func (n *RedisNotifier) EnqueueAsync(notification *models.Notification) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := n.Enqueue(ctx, notification); err != nil {
			n.logger.WithError(err).
				WithField("user_id", notification.UserID).
				Warn("failed to enqueue notification")
		}
	}()
}
