package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wzyjerry/data-agent-web/internal/pkg/config"
	"go.uber.org/zap"
)

// maxTxRetries bounds optimistic transaction retries when a watched key changes.
const maxTxRetries = 10

var (
	ErrNotInitialized = errors.New("redis client not initialized")
	ErrTxContention   = errors.New("redis transaction retries exhausted")
)

var (
	client *redis.Client
	log    *zap.Logger
)

// Init initializes the Redis client
func Init(ctx context.Context, cfg *config.Config) error {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisService.Password,
		DB:       cfg.RedisService.DB,
	})

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return err
	}
	client = c

	log = zap.L().With(zap.String("component", "redis"))
	log.Info("Redis connected successfully",
		zap.String("addr", cfg.GetRedisAddr()))

	return nil
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// Get returns the raw value at key; a missing key yields nil without error.
func Get(ctx context.Context, c *redis.Client, key string) ([]byte, error) {
	if c == nil {
		return nil, ErrNotInitialized
	}
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

// Delete deletes a key from Redis
func Delete(ctx context.Context, c *redis.Client, key string) error {
	if c == nil {
		return ErrNotInitialized
	}
	return c.Del(ctx, key).Err()
}

// Transact applies fn to the value at key under WATCH and writes the result
// with the given expiration. fn sees nil for a missing key. The write is
// retried when another client modified the key in between.
func Transact(ctx context.Context, c *redis.Client, key string, ttl time.Duration, fn func(current []byte) ([]byte, error)) error {
	if c == nil {
		return ErrNotInitialized
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if errors.Is(err, redis.Nil) {
			current = nil
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := c.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("%w: %s", ErrTxContention, key)
}
