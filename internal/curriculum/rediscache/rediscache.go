// Package rediscache decorates a fovapi.CurriculumPort with a Redis-backed
// cache in front of GenerateContextForQuery and Outline, grounded on the
// teacher's internal/skills/redis_cache.go and
// internal/workspaces/redis_cache.go: a redis.UniversalClient, a TTL, and a
// cfg.Enabled guard that makes a disabled cache a transparent pass-through.
package rediscache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"fovtutor/internal/config"
	"fovtutor/internal/fov/fovapi"
)

var _ fovapi.CurriculumPort = (*cached)(nil)

type cached struct {
	fovapi.CurriculumPort
	client redis.UniversalClient
	ttl    time.Duration
}

// Wrap returns a CurriculumPort that caches generate_context_for_query and
// outline lookups in Redis ahead of base. When cfg.Enabled is false, Wrap
// returns base unchanged: callers never need to branch on whether caching
// is on.
func Wrap(base fovapi.CurriculumPort, cfg config.RedisConfig) (fovapi.CurriculumPort, error) {
	if !cfg.Enabled {
		return base, nil
	}
	opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
	if cfg.TLSInsecureSkipVerify {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("rediscache: ping: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &cached{CurriculumPort: base, client: client, ttl: ttl}, nil
}

func (c *cached) queryKey(topic fovapi.TopicRef, query string, maxTokens int) string {
	return fmt.Sprintf("curriculum:ctx:%s:%d:%s", topic.ID, maxTokens, query)
}

func (c *cached) outlineKey() string {
	return "curriculum:outline"
}

func (c *cached) GenerateContextForQuery(ctx context.Context, query string, topic fovapi.TopicRef, maxTokens int) (string, float64, error) {
	key := c.queryKey(topic, query, maxTokens)
	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		if content, relevance, ok := decodeContext(val); ok {
			return content, relevance, nil
		}
	} else if err != redis.Nil {
		log.Debug().Err(err).Str("key", key).Msg("rediscache_get_context_error")
	}

	content, relevance, err := c.CurriculumPort.GenerateContextForQuery(ctx, query, topic, maxTokens)
	if err != nil || content == "" {
		return content, relevance, err
	}
	if setErr := c.client.Set(ctx, key, encodeContext(content, relevance), c.ttl).Err(); setErr != nil {
		log.Debug().Err(setErr).Str("key", key).Msg("rediscache_set_context_error")
	}
	return content, relevance, nil
}

func (c *cached) Outline(ctx context.Context) (string, error) {
	key := c.outlineKey()
	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		return val, nil
	} else if err != redis.Nil {
		log.Debug().Err(err).Str("key", key).Msg("rediscache_get_outline_error")
	}

	outline, err := c.CurriculumPort.Outline(ctx)
	if err != nil {
		return "", err
	}
	if setErr := c.client.Set(ctx, key, outline, c.ttl).Err(); setErr != nil {
		log.Debug().Err(setErr).Str("key", key).Msg("rediscache_set_outline_error")
	}
	return outline, nil
}

// Close closes the underlying Redis client. When caching is disabled, Wrap
// returns base itself, so there is no cached port and no client to close.
func (c *cached) Close() error {
	return c.client.Close()
}

const relevanceSep = "\x00"

func encodeContext(content string, relevance float64) string {
	return fmt.Sprintf("%f%s%s", relevance, relevanceSep, content)
}

func decodeContext(val string) (content string, relevance float64, ok bool) {
	for i := 0; i < len(val); i++ {
		if val[i] == relevanceSep[0] {
			if _, err := fmt.Sscanf(val[:i], "%f", &relevance); err != nil {
				return "", 0, false
			}
			return val[i+1:], relevance, true
		}
	}
	return "", 0, false
}
