//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"acadmin/internal/platform/config"
	platformredis "acadmin/internal/platform/redis"
)

// RedisContainer is a Redis instance reached through the same client
// constructor the server uses.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	client    *platformredis.Client
}

// NewRedisContainer starts Redis. Ryuk reaps it when the test binary exits.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	client, err := platformredis.New(ctx, config.RedisConfig{URL: url, PoolSize: 10})
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to redis: %v", err)
	}
	return &RedisContainer{Container: container, URL: url, client: client}
}

// Client returns the raw go-redis client.
func (r *RedisContainer) Client() *redis.Client {
	return r.client.Client
}

// FlushAll removes all keys; call it from SetupTest.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	if err := r.client.Health(ctx); err != nil {
		return err
	}
	return r.client.FlushAll(ctx).Err()
}
