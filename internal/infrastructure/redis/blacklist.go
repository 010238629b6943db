// Package redis holds the Redis-backed revocation store. A revoked
// refresh token is a key with a TTL matching the token's remaining
// lifetime, so entries expire on their own once the token itself would
// no longer verify.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jobportal/auth-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// Revoke marks the JTI revoked until ttl elapses. Returns
// domain.ErrTokenRevoked if the JTI was already revoked.
func (b *Blacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already past expiry; nothing to revoke, treat as done.
		return nil
	}
	ok, err := b.client.SetNX(ctx, blacklistKey(jti), time.Now().Unix(), ttl).Result()
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if !ok {
		return domain.ErrTokenRevoked
	}
	return nil
}

func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}
