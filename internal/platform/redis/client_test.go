package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acadmin/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("empty URL disables redis", func(t *testing.T) {
		client, err := New(context.Background(), config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, client)
	})

	t.Run("malformed URL", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "http://localhost:6379"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse redis URL")
	})
}

func TestOptionsOverrides(t *testing.T) {
	opts, err := options(config.RedisConfig{
		URL:         "redis://cache:6380/2",
		PoolSize:    25,
		ReadTimeout: 2 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
}
