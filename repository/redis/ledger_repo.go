package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/taskwarden/backend/repository"
)

type dispatchLedger struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewDispatchLedger creates a Redis-backed dispatch ledger. Marks expire after
// the configured TTL, which doubles as the ledger's eviction policy.
func NewDispatchLedger(client *redislib.Client, ttl time.Duration) repository.DispatchLedger {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &dispatchLedger{
		client: client,
		prefix: "dispatch:",
		ttl:    ttl,
	}
}

func (l *dispatchLedger) Marked(ctx context.Context, taskID, window string) (bool, error) {
	count, err := l.client.Exists(ctx, l.key(taskID, window)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (l *dispatchLedger) Mark(ctx context.Context, taskID, window string) error {
	return l.client.Set(ctx, l.key(taskID, window), time.Now().UTC().Format(time.RFC3339), l.ttl).Err()
}

func (l *dispatchLedger) key(taskID, window string) string {
	return fmt.Sprintf("%s%s:%s", l.prefix, taskID, window)
}
