package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

// DefaultPrefix espacio de llaves del caché en Redis.
const DefaultPrefix = "inventario:"

// RedisStockHealthCache caché de StockHealth en Redis (JSON con TTL).
type RedisStockHealthCache struct {
	client *redis.Client
	prefix string
}

// NewRedisStockHealthCache conecta a Redis. prefix vacío usa DefaultPrefix.
func NewRedisStockHealthCache(addr, password string, db int, prefix string) *RedisStockHealthCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStockHealthCache{client: client, prefix: prefix}
}

func (c *RedisStockHealthCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockHealthCache) Close() error {
	return c.client.Close()
}

func (c *RedisStockHealthCache) Get(ctx context.Context, key string) (*inventory.StockHealth, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var health inventory.StockHealth
	if err := json.Unmarshal(val, &health); err != nil {
		return nil, false, fmt.Errorf("decodificar salud de stock: %w", err)
	}
	return &health, true, nil
}

func (c *RedisStockHealthCache) Set(ctx context.Context, key string, value *inventory.StockHealth, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
}

// Invalidate borra todas las llaves del prefijo (SCAN + DEL por tandas).
func (c *RedisStockHealthCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == 100 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}
	return nil
}
