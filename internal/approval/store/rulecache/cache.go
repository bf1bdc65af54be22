// Package rulecache keeps approval rule configs in Redis in front of the
// policy store. Assignments are not cached.
package rulecache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"acadmin/internal/approval/models"
	"acadmin/pkg/platform/circuit"
	"acadmin/pkg/platform/sentinel"
	txcontext "acadmin/pkg/platform/tx"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "acadmin_rule_cache_lookups_total",
	Help: "Rule config cache lookups by result (hit, miss, error, bypass)",
}, []string{"result"})

const (
	keyPrefix = "approval:rule:"
	// absentMarker caches the fact that a pair has no configured row.
	absentMarker = "-"
	defaultTTL   = 5 * time.Minute

	sharedLoadTimeout = 5 * time.Second
)

// Backend is the policy store the cache reads through to.
type Backend interface {
	FindRuleConfig(ctx context.Context, key models.ActionKey) (*models.RuleConfig, error)
	ListActiveAssignments(ctx context.Context, key models.ActionKey) ([]*models.ApproverAssignment, error)
}

// Cache is a read-through cache for FindRuleConfig.
// Redis failures degrade to the backend; repeated failures open the breaker
// and Redis is skipped until its cooldown expires.
type Cache struct {
	backend Backend
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	breaker *circuit.Breaker
	group   singleflight.Group
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithBreaker replaces the default breaker guarding Redis calls.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Cache) {
		c.breaker = b
	}
}

func New(backend Backend, client *redis.Client, opts ...Option) *Cache {
	c := &Cache{
		backend: backend,
		client:  client,
		ttl:     defaultTTL,
		logger:  slog.Default(),
		breaker: circuit.New("rule-cache"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func cacheKey(key models.ActionKey) string {
	return keyPrefix + key.String()
}

func (c *Cache) FindRuleConfig(ctx context.Context, key models.ActionKey) (*models.RuleConfig, error) {
	if !c.breaker.Allow() {
		lookups.WithLabelValues("bypass").Inc()
		return c.backend.FindRuleConfig(ctx, key)
	}

	raw, err := c.client.Get(ctx, cacheKey(key)).Result()
	c.record(ctx, err)
	switch {
	case err == nil:
		lookups.WithLabelValues("hit").Inc()
		if raw == absentMarker {
			return nil, sentinel.ErrNotFound
		}
		var cfg models.RuleConfig
		if jsonErr := json.Unmarshal([]byte(raw), &cfg); jsonErr == nil {
			return &cfg, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached rule", "key", key.String())
	case errors.Is(err, redis.Nil):
		lookups.WithLabelValues("miss").Inc()
	default:
		lookups.WithLabelValues("error").Inc()
		c.logger.WarnContext(ctx, "rule cache read failed", "key", key.String(), "error", err)
	}

	// A caller inside a transaction loads through its own tx; only
	// transaction-free lookups are shared.
	if _, inTx := txcontext.From(ctx); inTx {
		return c.load(ctx, key)
	}
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return c.load(loadCtx, key)
	})
	if err != nil {
		return nil, err
	}
	cfg := *(v.(*models.RuleConfig))
	return &cfg, nil
}

func (c *Cache) load(ctx context.Context, key models.ActionKey) (*models.RuleConfig, error) {
	cfg, err := c.backend.FindRuleConfig(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		c.store(ctx, key, absentMarker)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if data, jsonErr := json.Marshal(cfg); jsonErr == nil {
		c.store(ctx, key, string(data))
	}
	return cfg, nil
}

// record feeds a Redis result to the breaker. redis.Nil is a miss, not a failure.
func (c *Cache) record(ctx context.Context, err error) {
	if err == nil || errors.Is(err, redis.Nil) {
		c.breaker.RecordSuccess()
		return
	}
	if c.breaker.RecordFailure() {
		c.logger.WarnContext(ctx, "rule cache circuit opened, reading from the database", "error", err)
	}
}

func (c *Cache) store(ctx context.Context, key models.ActionKey, value string) {
	if !c.breaker.Allow() {
		return
	}
	err := c.client.Set(ctx, cacheKey(key), value, c.ttl).Err()
	c.record(ctx, err)
	if err != nil {
		c.logger.WarnContext(ctx, "rule cache write failed", "key", key.String(), "error", err)
	}
}

func (c *Cache) ListActiveAssignments(ctx context.Context, key models.ActionKey) ([]*models.ApproverAssignment, error) {
	return c.backend.ListActiveAssignments(ctx, key)
}

// Invalidate removes the cached rule for key. Writers call it after
// updating the backend.
func (c *Cache) Invalidate(ctx context.Context, key models.ActionKey) error {
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		c.logger.WarnContext(ctx, "rule cache invalidation failed", "key", key.String(), "error", err)
		return err
	}
	return nil
}
