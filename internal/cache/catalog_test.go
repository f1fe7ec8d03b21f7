package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/models"
	"shopfront/internal/store"
)

type countingCatalog struct {
	products map[uuid.UUID]models.Product
	finds    int
	lists    int
	latest   int
}

func newCountingCatalog() *countingCatalog {
	return &countingCatalog{products: map[uuid.UUID]models.Product{}}
}

func (c *countingCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	c.finds++
	p, ok := c.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (c *countingCatalog) List(context.Context) ([]models.Product, error) {
	c.lists++
	out := []models.Product{}
	for _, p := range c.products {
		out = append(out, p)
	}
	return out, nil
}

func (c *countingCatalog) Latest(ctx context.Context, n int) ([]models.Product, error) {
	c.latest++
	all, _ := c.List(ctx)
	c.lists--
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (c *countingCatalog) ListBySeller(context.Context, uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

func (c *countingCatalog) Search(context.Context, string) ([]models.Product, error) {
	return nil, nil
}

func (c *countingCatalog) Create(_ context.Context, p *models.Product) error {
	c.products[p.ID] = *p
	return nil
}

func (c *countingCatalog) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := c.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.products, id)
	return nil
}

func setup(t *testing.T) (*Catalog, *countingCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	next := newCountingCatalog()
	return NewCatalog(next, rdb, time.Minute), next, mr
}

func product(name, price string) *models.Product {
	return &models.Product{ID: uuid.New(), Name: name, Price: decimal.RequireFromString(price)}
}

func TestFindByID_ServedFromCache(t *testing.T) {
	ctx := context.Background()
	c, next, mr := setup(t)

	p := product("Tasse", "12.50")
	require.NoError(t, c.Create(ctx, p))

	first, err := c.FindByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := c.FindByID(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, next.finds)
	assert.Equal(t, first.Name, second.Name)
	assert.True(t, second.Price.Equal(p.Price))
	assert.True(t, mr.Exists(productKey(p.ID)))
	assert.Equal(t, time.Minute, mr.TTL(productKey(p.ID)))
}

func TestFindByID_NotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	c, next, mr := setup(t)

	id := uuid.New()
	_, err := c.FindByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = c.FindByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Equal(t, 2, next.finds)
	assert.False(t, mr.Exists(productKey(id)))
}

func TestCreateAndDelete_InvalidateLists(t *testing.T) {
	ctx := context.Background()
	c, next, mr := setup(t)

	require.NoError(t, c.Create(ctx, product("A", "1")))

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, err = c.Latest(ctx, 5)
	require.NoError(t, err)
	assert.True(t, mr.Exists(allProductsKey))
	assert.True(t, mr.Exists(latestPrefix+"5"))

	b := product("B", "2")
	require.NoError(t, c.Create(ctx, b))
	assert.False(t, mr.Exists(allProductsKey))
	assert.False(t, mr.Exists(latestPrefix+"5"))

	all, err = c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, next.lists)

	_, err = c.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, b.ID))
	assert.False(t, mr.Exists(productKey(b.ID)))

	_, err = c.FindByID(ctx, b.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisDown_FallsBackToStore(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	next := newCountingCatalog()
	c := NewCatalog(next, rdb, time.Minute)

	p := product("Tasse", "3")
	require.NoError(t, next.Create(ctx, p))

	got, err := c.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tasse", got.Name)
}

func TestCorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	c, next, mr := setup(t)

	p := product("Tasse", "3")
	require.NoError(t, next.Create(ctx, p))
	require.NoError(t, mr.Set(productKey(p.ID), "{pas du json"))

	got, err := c.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tasse", got.Name)
	assert.Equal(t, 1, next.finds)
}
