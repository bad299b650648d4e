package session

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wzyjerry/data-agent-web/internal/pkg/redis"
)

const redisKeyPrefix = "web-client:session:"

// RedisStore keeps states in Redis so several web-client instances can share
// sessions. Updates run as WATCH/MULTI transactions.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an initialized client.
func NewRedisStore(client *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	raw, err := redis.Get(ctx, r.client, r.key(id))
	if err != nil {
		return nil, err
	}
	return decodeState(raw)
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*State) error) error {
	if id == "" {
		return ErrEmptyID
	}
	return redis.Transact(ctx, r.client, r.key(id), r.ttl, func(current []byte) ([]byte, error) {
		st, err := decodeState(current)
		if err != nil {
			return nil, err
		}
		if err := fn(st); err != nil {
			return nil, err
		}
		return encodeState(st)
	})
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return redis.Delete(ctx, r.client, r.key(id))
}

// Close is a no-op; the shared client is closed by its owner.
func (r *RedisStore) Close() error {
	return nil
}
