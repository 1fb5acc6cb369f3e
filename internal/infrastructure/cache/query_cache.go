// Package cache implements the read-through memo in front of paginated,
// store-scoped reads.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Namespaces group cached reads that are invalidated together
const (
	NamespaceStores      = "stores"
	NamespaceSettlements = "settlements"
	NamespaceCostPrices  = "cost_prices"
	// NamespaceSubAccountStores caches the allowed store set of a sub-account,
	// owned by the sub-account id
	NamespaceSubAccountStores = "sub_account_stores"
)

const (
	resultHitL1 = "hit_l1"
	resultHitL2 = "hit_l2"
	resultMiss  = "miss"
	resultError = "error"
)

// Config holds the query cache settings
type Config struct {
	TTL        time.Duration
	MaxEntries uint64
	KeyPrefix  string
}

// QueryCache memoizes read results for a fixed TTL.
//
// Keys embed a per (namespace, owner) generation counter. Invalidate bumps
// the counter so stale entries are never read again and expire on their own.
// When a Redis client is configured it holds both the counter and a shared
// second tier, so invalidation is visible to every instance.
type QueryCache struct {
	ttl    time.Duration
	prefix string
	local  *ttlcache.Cache[string, []byte]
	redis  redis.UniversalClient
	group  singleflight.Group
	logger *zap.Logger

	mu   sync.Mutex
	gens map[string]uint64

	requests metric.Int64Counter
}

// Option configures a QueryCache
type Option func(*QueryCache)

// WithRedis enables the shared Redis tier
func WithRedis(client redis.UniversalClient) Option {
	return func(c *QueryCache) {
		c.redis = client
	}
}

// WithLogger sets the logger for the cache
func WithLogger(logger *zap.Logger) Option {
	return func(c *QueryCache) {
		c.logger = logger
	}
}

// WithMeter records hit and miss counts on meter instead of the global one
func WithMeter(meter metric.Meter) Option {
	return func(c *QueryCache) {
		c.requests, _ = newRequestCounter(meter)
	}
}

// NewQueryCache creates a QueryCache. A TTL of zero or less disables caching.
func NewQueryCache(cfg Config, opts ...Option) (*QueryCache, error) {
	c := &QueryCache{
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
		logger: zap.NewNop(),
		gens:   make(map[string]uint64),
	}
	if c.prefix == "" {
		c.prefix = "zq"
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.requests == nil {
		counter, err := newRequestCounter(otel.GetMeterProvider().Meter("zique-assistant/cache"))
		if err != nil {
			return nil, err
		}
		c.requests = counter
	}

	if c.ttl > 0 {
		localOpts := []ttlcache.Option[string, []byte]{
			ttlcache.WithTTL[string, []byte](c.ttl),
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		}
		if cfg.MaxEntries > 0 {
			localOpts = append(localOpts, ttlcache.WithCapacity[string, []byte](cfg.MaxEntries))
		}
		c.local = ttlcache.New(localOpts...)
		go c.local.Start()
	}
	return c, nil
}

func newRequestCounter(meter metric.Meter) (metric.Int64Counter, error) {
	counter, err := meter.Int64Counter(
		"query_cache.requests",
		metric.WithDescription("Query cache lookups by namespace and result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache counter: %w", err)
	}
	return counter, nil
}

// Enabled reports whether results are cached at all
func (c *QueryCache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Close stops the expiry loop of the local tier
func (c *QueryCache) Close() {
	if c != nil && c.local != nil {
		c.local.Stop()
	}
}

// Get returns the cached result of load for (namespace, owner, params),
// calling load on a miss. params is the full read signature (scope
// condition, filter and pagination); it is hashed into the key. Concurrent
// misses for the same key share one load. Errors from load are returned but
// never cached.
func Get[T any](ctx context.Context, c *QueryCache, namespace string, owner uuid.UUID, params any, load func(context.Context) (T, error)) (T, error) {
	if !c.Enabled() {
		return load(ctx)
	}

	key, err := c.key(ctx, namespace, owner, params)
	if err != nil {
		c.logger.Warn("Query cache bypassed", zap.String("namespace", namespace), zap.Error(err))
		c.record(ctx, namespace, resultError)
		return load(ctx)
	}

	if item := c.local.Get(key); item != nil {
		var out T
		if err := json.Unmarshal(item.Value(), &out); err == nil {
			c.record(ctx, namespace, resultHitL1)
			return out, nil
		}
		c.local.Delete(key)
	}

	var result T
	fresh := false
	data, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok := c.readShared(ctx, key); ok {
			c.local.Set(key, data, ttlcache.DefaultTTL)
			c.record(ctx, namespace, resultHitL2)
			return data, nil
		}

		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode cached value: %w", err)
		}
		c.local.Set(key, data, ttlcache.DefaultTTL)
		c.writeShared(ctx, key, data)
		c.record(ctx, namespace, resultMiss)
		result, fresh = v, true
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if fresh {
		return result, nil
	}

	var out T
	if err := json.Unmarshal(data.([]byte), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return out, nil
}

// Invalidate orphans every cached read of owner in the given namespaces
func (c *QueryCache) Invalidate(ctx context.Context, owner uuid.UUID, namespaces ...string) error {
	if !c.Enabled() {
		return nil
	}

	var errs []error
	for _, ns := range namespaces {
		genKey := c.genKey(ns, owner)
		if c.redis != nil {
			if err := c.redis.Incr(ctx, genKey).Err(); err != nil {
				errs = append(errs, fmt.Errorf("failed to bump generation of %s: %w", ns, err))
			}
			continue
		}
		c.mu.Lock()
		c.gens[genKey]++
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (c *QueryCache) key(ctx context.Context, namespace string, owner uuid.UUID, params any) (string, error) {
	gen, err := c.generation(ctx, c.genKey(namespace, owner))
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:q:%s:%s:%d:%s", c.prefix, namespace, owner, gen, hex.EncodeToString(sum[:])), nil
}

func (c *QueryCache) genKey(namespace string, owner uuid.UUID) string {
	return fmt.Sprintf("%s:gen:%s:%s", c.prefix, namespace, owner)
}

func (c *QueryCache) generation(ctx context.Context, genKey string) (uint64, error) {
	if c.redis == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.gens[genKey], nil
	}

	raw, err := c.redis.Get(ctx, genKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read generation: %w", err)
	}
	return strconv.ParseUint(raw, 10, 64)
}

func (c *QueryCache) readShared(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Query cache redis read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (c *QueryCache) writeShared(ctx context.Context, key string, data []byte) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Query cache redis write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *QueryCache) record(ctx context.Context, namespace, result string) {
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("result", result),
	))
}
