package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis cria o cliente Redis e valida com ping
func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// JSON encapsula leitura/escrita de blobs JSON com TTL, reaproveitado pelos caches de domínio
type JSON struct {
	R *redis.Client
}

// Get lê a chave e desserializa em dst; ok=false em cache miss
func (c JSON) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

// Set serializa v e grava com TTL
func (c JSON) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, ttl).Err()
}

// Del remove as chaves (invalidação após escrita)
func (c JSON) Del(ctx context.Context, keys ...string) error {
	return c.R.Del(ctx, keys...).Err()
}
