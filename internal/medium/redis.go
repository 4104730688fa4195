package medium

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"blocknexus/pkg/platform/sentinel"
)

const (
	// Redis key prefix for medium items
	redisItemKeyPrefix = "blocknexus:item:"
)

// Redis is a Redis-backed Medium for deployments where several processes share
// one storage instance. Items carry no TTL.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed medium. The client lifecycle is managed externally.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) GetItem(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, redisItemKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, classifyRedisErr(err))
	}
	return value, true, nil
}

func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, redisItemKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, classifyRedisErr(err))
	}
	return nil
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisItemKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("remove %q: %w", key, classifyRedisErr(err))
	}
	return nil
}

// classifyRedisErr maps maxmemory rejections to ErrQuotaExceeded and anything
// the server did not answer (dial, timeout, closed pool) to ErrUnavailable.
func classifyRedisErr(err error) error {
	var replyErr redis.Error
	switch {
	case strings.HasPrefix(err.Error(), "OOM "):
		return fmt.Errorf("%w: %w", sentinel.ErrQuotaExceeded, err)
	case errors.As(err, &replyErr):
		return err
	default:
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
}
