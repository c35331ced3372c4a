package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup marks event ids as processed per consumer service.
type Dedup struct {
	Redis   *redis.Client
	Service string
}

// Claim reports whether id was not seen before and marks it as seen.
func (d *Dedup) Claim(ctx context.Context, id string) (bool, error) {
	return d.Redis.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), "1", TTLDedup).Result()
}

// Release forgets id so a redelivery is processed again.
func (d *Dedup) Release(ctx context.Context, id string) error {
	return d.Redis.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
