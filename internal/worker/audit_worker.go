package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/TCoder4k/engmasterai-backend/internal/events"
	"github.com/TCoder4k/engmasterai-backend/internal/persistence"
)

const lastSeenKeyPrefix = "auth:last_seen:"

// AuditWorker records auth lifecycle events: structured log lines plus
// a last-seen marker in Redis with a bounded TTL.
type AuditWorker struct {
	redis  *persistence.Redis
	logger *zap.Logger
	ttl    time.Duration
}

// NewAuditWorker builds the worker.
func NewAuditWorker(redis *persistence.Redis, logger *zap.Logger, ttl time.Duration) *AuditWorker {
	return &AuditWorker{redis: redis, logger: logger, ttl: ttl}
}

// Register subscribes the worker to auth events.
func (w *AuditWorker) Register(dispatcher events.Dispatcher) {
	if w == nil || dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{events.UserRegistered, events.UserLoggedIn, events.UserLoggedOut} {
		dispatcher.Subscribe(eventType, w.handle)
	}
}

func (w *AuditWorker) handle(ctx context.Context, event events.Event) error {
	w.logger.Info("auth event",
		zap.String("type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.Time("occurred_at", event.OccurredAt),
	)

	if w.redis == nil || w.redis.Client == nil {
		return nil
	}
	key := lastSeenKeyPrefix + event.UserID
	if err := w.redis.Client.Set(ctx, key, event.OccurredAt.Format(time.RFC3339), w.ttl).Err(); err != nil {
		w.logger.Warn("failed to record last-seen marker", zap.Error(err))
	}
	return nil
}
