// Package cache holds the Redis-backed access-token denylist.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "clinic:revoked-token:"

// Denylist records access tokens revoked before their expiry.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisDenylist stores revoked token ids with a TTL matching the token's
// remaining lifetime, so entries vanish once the token would be invalid anyway.
type RedisDenylist struct {
	client *redis.Client
}

// NewRedisDenylist connects to addr and verifies the connection, retrying a
// few times while Redis starts up.
func NewRedisDenylist(ctx context.Context, addr, password string, db int) (*RedisDenylist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	const maxRetries = 5
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return &RedisDenylist{client: client}, nil
		}
		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	client.Close()
	return nil, fmt.Errorf("connect to redis at %s after %d attempts: %w", addr, maxRetries, err)
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

// Close releases the underlying connection pool.
func (d *RedisDenylist) Close() error {
	return d.client.Close()
}

func key(tokenID string) string {
	return keyPrefix + tokenID
}

// Nop never revokes anything. Used when Redis is not configured; logout then
// only ends the refresh session.
type Nop struct{}

func (Nop) Revoke(context.Context, string, time.Time) error { return nil }
func (Nop) IsRevoked(context.Context, string) (bool, error)  { return false, nil }
