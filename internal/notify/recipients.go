package notify

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RecipientSource yields the hand-maintained list of announcement email
// recipients. The list is bounded by construction; nobody subscribes
// programmatically.
type RecipientSource interface {
	List(ctx context.Context) ([]string, error)
}

// StaticRecipients is a fixed list supplied from configuration.
type StaticRecipients []string

func (r StaticRecipients) List(context.Context) ([]string, error) {
	return append([]string(nil), r...), nil
}

// recipientsKey is the Redis set operators edit to adjust the list without
// a redeploy.
const recipientsKey = "notify:recipients"

// RedisRecipients reads the recipient set from Redis, falling back to a
// static list when Redis is unreachable or the set is empty. Notification
// delivery should degrade, not stop, when the cache is down.
type RedisRecipients struct {
	client   *redis.Client
	fallback StaticRecipients
	logger   *slog.Logger
}

func NewRedisRecipients(client *redis.Client, fallback []string, logger *slog.Logger) *RedisRecipients {
	return &RedisRecipients{
		client:   client,
		fallback: StaticRecipients(fallback),
		logger:   logger,
	}
}

func (r *RedisRecipients) List(ctx context.Context) ([]string, error) {
	members, err := r.client.SMembers(ctx, recipientsKey).Result()
	if err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "recipient set unavailable, using fallback", "error", err)
		}
		return r.fallback.List(ctx)
	}
	if len(members) == 0 {
		return r.fallback.List(ctx)
	}
	return members, nil
}
