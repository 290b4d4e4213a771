package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache простое key/value хранилище с TTL поверх Redis. Используется как быстрый слой
// проверки идемпотентности, поэтому источником истины не является.
type Cache struct {
	client redis.UniversalClient
}

func New(client redis.UniversalClient) *Cache {
	return &Cache{client: client}
}

// Put записывает значение с ограниченным временем жизни. ttl должен быть положительным.
func (c *Cache) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("[cache/put %s] %w", key, ErrInvalidTTL)
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("[cache/put %s] %w", key, err)
	}
	return nil
}

// Exists проверяет наличие ключа. Истекший ключ считается отсутствующим.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("[cache/exists %s] %w", key, err)
	}
	return n > 0, nil
}
