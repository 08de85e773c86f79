// Package redis caches safe URL records by slug.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/link-shortener/internal/entity"
)

const (
	keyPrefix  = "url:slug:"
	DefaultTTL = time.Hour
)

// cachedURL is the cached form of entity.URL. Visit counts are left out
// since they change on every resolve.
type cachedURL struct {
	ID              int64     `json:"id"`
	OriginalURL     string    `json:"original_url"`
	OriginalURLHash string    `json:"original_url_hash"`
	Slug            string    `json:"slug"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type URLCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewURLCache(client *redis.Client, ttl time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &URLCache{
		client: client,
		ttl:    ttl,
	}
}

func key(slug string) string {
	return keyPrefix + slug
}

// Get returns nil, nil on a miss.
func (c *URLCache) Get(ctx context.Context, slug string) (*entity.URL, error) {
	const op = "adapter.cache.redis.URLCache.Get"

	val, err := c.client.Get(ctx, key(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var cu cachedURL
	if err := json.Unmarshal(val, &cu); err != nil {
		c.client.Del(ctx, key(slug))
		return nil, fmt.Errorf("%s: failed to decode cached url: %w", op, err)
	}

	return &entity.URL{
		ID:              cu.ID,
		OriginalURL:     cu.OriginalURL,
		OriginalURLHash: cu.OriginalURLHash,
		Slug:            cu.Slug,
		IsSafe:          true,
		CreatedAt:       cu.CreatedAt,
		UpdatedAt:       cu.UpdatedAt,
	}, nil
}

// Set stores a safe URL. Unsafe records are never cached.
func (c *URLCache) Set(ctx context.Context, url *entity.URL) error {
	const op = "adapter.cache.redis.URLCache.Set"

	if url == nil || !url.IsSafe {
		return nil
	}

	val, err := json.Marshal(cachedURL{
		ID:              url.ID,
		OriginalURL:     url.OriginalURL,
		OriginalURLHash: url.OriginalURLHash,
		Slug:            url.Slug,
		CreatedAt:       url.CreatedAt,
		UpdatedAt:       url.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to encode url: %w", op, err)
	}

	if err := c.client.Set(ctx, key(url.Slug), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	const op = "adapter.cache.redis.Connect"

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid redis url: %w", op, err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	return client, nil
}
