//go:build integration

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/postgres/pgtest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRepoGetAndList(t *testing.T) {
	pool := pgtest.NewPool(t)
	repo := &Repo{DB: pool}
	ctx := context.Background()

	desk := pgtest.InsertProduct(t, pool, 1, "Desk", "Furniture", 12000)
	chair := pgtest.InsertProduct(t, pool, 1, "Chair", "Furniture", 4000)
	novel := pgtest.InsertProduct(t, pool, 2, "Novel", "Books", 300)

	p, err := repo.Get(ctx, desk)
	require.NoError(t, err)
	require.Equal(t, "Desk", p.Title)
	require.EqualValues(t, 12000, p.PriceMinorUnits)

	_, err = repo.Get(ctx, 999999)
	require.ErrorIs(t, err, ErrNotFound)

	many, err := repo.GetMany(ctx, []int64{desk, novel, 999999})
	require.NoError(t, err)
	require.Len(t, many, 2)
	require.Contains(t, many, novel)

	seller := int64(1)
	bySeller, err := repo.List(ctx, Filter{SellerID: &seller})
	require.NoError(t, err)
	require.Len(t, bySeller, 2)
	require.Equal(t, chair, bySeller[0].ID)

	books, err := repo.List(ctx, Filter{Category: "Books"})
	require.NoError(t, err)
	require.Len(t, books, 1)

	page, err := repo.List(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, chair, page[0].ID)

	none, err := repo.List(ctx, Filter{Category: "Garden"})
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestCachedServesFromRedis(t *testing.T) {
	pool := pgtest.NewPool(t)
	rdb := pgtest.NewRedis(t)
	ctx := context.Background()

	id := pgtest.InsertProduct(t, pool, 1, "Lamp", "Home", 1500)
	c := &Cached{Next: &Repo{DB: pool}, Redis: rdb, TTL: time.Minute, Log: zerolog.Nop()}

	p, err := c.Get(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 1500, p.PriceMinorUnits)

	n, err := rdb.Exists(ctx, key(id)).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// a cached entry is served even after the row changes
	_, err = pool.Exec(ctx, `UPDATE products SET price_minor_units=2000 WHERE id=$1`, id)
	require.NoError(t, err)
	p, err = c.Get(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 1500, p.PriceMinorUnits)

	_, err = c.Get(ctx, 999999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedFallsThroughWhenRedisDown(t *testing.T) {
	pool := pgtest.NewPool(t)
	rdb := pgtest.NewRedis(t)
	require.NoError(t, rdb.Close())

	id := pgtest.InsertProduct(t, pool, 1, "Lamp", "Home", 1500)
	c := &Cached{Next: &Repo{DB: pool}, Redis: rdb, TTL: time.Minute, Log: zerolog.Nop()}

	got, err := c.GetMany(context.Background(), []int64{id})
	require.NoError(t, err)
	require.Equal(t, "Lamp", got[id].Title)
}
