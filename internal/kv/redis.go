// Package kv adapts shared key-value backends to the timer store.
package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// Redis stores values as plain string keys on a go-redis client.
type Redis struct {
	rdb *redis.Client
}

// NewRedis wraps an existing client. The client's lifetime stays with
// the caller.
func NewRedis(rdb *redis.Client) *Redis {
	if rdb == nil {
		panic("nil redis client passed to kv.NewRedis")
	}
	return &Redis{rdb: rdb}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set writes without expiry; timers outlive their countdown until cleared.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, keys...).Err()
}

// Keys walks the keyspace with SCAN so large databases are not blocked
// the way KEYS would block them.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	iter := r.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}
