package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultIdempotencyTTL = 10 * time.Minute
	pendingMarker         = "pending"
)

// Guard makes a checkout with the same idempotency key run at most once.
type Guard interface {
	// Begin claims the key. It returns the order number of an earlier completed
	// checkout, or ErrCheckoutInProgress while another one holds the key.
	Begin(ctx context.Context, customerID, key string) (string, error)
	Complete(ctx context.Context, customerID, key, orderNumber string) error
	Release(ctx context.Context, customerID, key string) error
}

type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func guardKey(customerID, key string) string {
	return fmt.Sprintf("checkout:idempotency:%s:%s", customerID, key)
}

func (g *RedisGuard) Begin(ctx context.Context, customerID, key string) (string, error) {
	k := guardKey(customerID, key)

	// one retry covers the key expiring between SETNX and GET
	for attempt := 0; attempt < 2; attempt++ {
		acquired, err := g.client.SetNX(ctx, k, pendingMarker, g.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("claim idempotency key: %w", err)
		}
		if acquired {
			return "", nil
		}

		val, err := g.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read idempotency key: %w", err)
		}
		if val == pendingMarker {
			return "", ErrCheckoutInProgress
		}
		return val, nil
	}
	return "", ErrCheckoutInProgress
}

func (g *RedisGuard) Complete(ctx context.Context, customerID, key, orderNumber string) error {
	if err := g.client.Set(ctx, guardKey(customerID, key), orderNumber, g.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

func (g *RedisGuard) Release(ctx context.Context, customerID, key string) error {
	if err := g.client.Del(ctx, guardKey(customerID, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// NopGuard never deduplicates.
type NopGuard struct{}

func (NopGuard) Begin(context.Context, string, string) (string, error) { return "", nil }

func (NopGuard) Complete(context.Context, string, string, string) error { return nil }

func (NopGuard) Release(context.Context, string, string) error { return nil }
