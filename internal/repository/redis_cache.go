package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrCacheMiss = errors.New("cache miss")

const (
	cacheNamespace = "mentorlink:"
	scanBatch      = 100
)

var cacheTracer = otel.Tracer("mentorlink/cache")

// RedisCache stores JSON documents under the mentorlink key namespace.
// Keys passed in are relative; the namespace is added here.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) key(k string) string { return cacheNamespace + k }

func (r *RedisCache) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return cacheTracer.Start(ctx, "cache."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.system", "redis"))...),
	)
}

// Get decodes the value at key into dest. A missing key returns ErrCacheMiss.
func (r *RedisCache) Get(ctx context.Context, key string, dest any) error {
	ctx, span := r.span(ctx, "get", attribute.String("cache.key", key))
	defer span.End()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return ErrCacheMiss
	case err != nil:
		span.RecordError(err)
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))

	if err := json.Unmarshal(data, dest); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// GetMany returns the raw documents found for keys, keyed by the relative key.
// Missing keys are absent from the result.
func (r *RedisCache) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	ctx, span := r.span(ctx, "mget", attribute.Int("cache.key_count", len(keys)))
	defer span.End()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	values, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cache mget: %w", err)
	}

	found := make(map[string][]byte, len(keys))
	for i, v := range values {
		if s, ok := v.(string); ok {
			found[keys[i]] = []byte(s)
		}
	}
	span.SetAttributes(attribute.Int("cache.hits", len(found)))
	return found, nil
}

// Set encodes value as JSON and stores it for ttl.
func (r *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, span := r.span(ctx, "set",
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl_seconds", int64(ttl.Seconds())),
	)
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, span := r.span(ctx, "del", attribute.Int("cache.key_count", len(keys)))
	defer span.End()

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every key starting with prefix. It walks the
// keyspace with SCAN, so keep prefixes narrow.
func (r *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	ctx, span := r.span(ctx, "del_prefix", attribute.String("cache.prefix", prefix))
	defer span.End()

	iter := r.client.Scan(ctx, 0, r.key(prefix)+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	removed := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		removed += len(batch)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				span.RecordError(err)
				return fmt.Errorf("cache del prefix %s: %w", prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache scan %s: %w", prefix, err)
	}
	if err := flush(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("cache del prefix %s: %w", prefix, err)
	}

	span.SetAttributes(attribute.Int("cache.removed", removed))
	return nil
}
