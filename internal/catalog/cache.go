package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/metrics"
	"github.com/ecofinds/ecofinds-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Source is the read side of the catalog.
type Source interface {
	Get(ctx context.Context, id int64) (Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]Product, error)
	List(ctx context.Context, f Filter) ([]Product, error)
}

// Cached is a cache-aside decorator over Source keyed per product.
// Redis failures are logged and fall through to Next; List is never cached.
type Cached struct {
	Next  Source
	Redis *redis.Client
	TTL   time.Duration
	Log   zerolog.Logger
}

func key(id int64) string { return fmt.Sprintf(redisx.KeyCatalogProduct, id) }

func (c *Cached) Get(ctx context.Context, id int64) (Product, error) {
	m, err := c.GetMany(ctx, []int64{id})
	if err != nil {
		return Product{}, err
	}
	p, ok := m[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (c *Cached) GetMany(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	var missing []int64
	vals, err := c.Redis.MGet(ctx, keys...).Result()
	if err != nil {
		c.Log.Warn().Err(err).Msg("catalog cache read failed")
		missing = ids
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, ids[i])
				continue
			}
			var p Product
			if err := json.Unmarshal([]byte(s), &p); err != nil {
				missing = append(missing, ids[i])
				continue
			}
			out[p.ID] = p
		}
	}
	metrics.CatalogCache.WithLabelValues("hit").Add(float64(len(ids) - len(missing)))
	metrics.CatalogCache.WithLabelValues("miss").Add(float64(len(missing)))

	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := c.Next.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) > 0 {
		pipe := c.Redis.Pipeline()
		for id, p := range fresh {
			out[id] = p
			b, err := json.Marshal(p)
			if err != nil {
				continue
			}
			pipe.Set(ctx, key(id), b, c.TTL)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			c.Log.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return out, nil
}

func (c *Cached) List(ctx context.Context, f Filter) ([]Product, error) {
	return c.Next.List(ctx, f)
}
