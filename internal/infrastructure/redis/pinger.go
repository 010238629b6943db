package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pinger adapts go-redis's status-command Ping to the plain error
// signature the health checker expects.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
