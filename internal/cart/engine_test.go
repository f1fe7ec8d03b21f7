package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/models"
)

func (l *locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func testProduct(p string) *models.Product {
	return &models.Product{ID: uuid.New(), Name: "Produit", Price: price(p)}
}

func TestEngine_AddAndGet(t *testing.T) {
	e := NewEngine(NewMemoryStore())
	ctx := context.Background()
	p := testProduct("12.00")

	_, err := e.AddItem(ctx, "s1", p)
	require.NoError(t, err)
	c, err := e.AddItem(ctx, "s1", p)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.Equal(t, "Produit", c.Lines[0].Name)

	got, err := e.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.Total().Equal(price("24.00")))
}

func TestEngine_SessionsAreIsolated(t *testing.T) {
	e := NewEngine(NewMemoryStore())
	ctx := context.Background()

	_, err := e.AddItem(ctx, "a", testProduct("1.00"))
	require.NoError(t, err)

	other, err := e.Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestEngine_EmptySessionRejected(t *testing.T) {
	e := NewEngine(NewMemoryStore())
	ctx := context.Background()

	_, err := e.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = e.AddItem(ctx, "", testProduct("1.00"))
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, e.Destroy(ctx, ""), ErrNoSession)
}

func TestEngine_ClearKeepsSessionUsable(t *testing.T) {
	e := NewEngine(NewMemoryStore())
	ctx := context.Background()
	p := testProduct("3.00")

	_, err := e.AddItem(ctx, "s", p)
	require.NoError(t, err)
	require.NoError(t, e.Clear(ctx, "s"))
	require.NoError(t, e.Clear(ctx, "s"))

	snap, err := e.Snapshot(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, snap)

	c, err := e.AddItem(ctx, "s", p)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestEngine_SetQuantityAndRemove(t *testing.T) {
	e := NewEngine(NewMemoryStore())
	ctx := context.Background()
	p := testProduct("2.00")

	_, err := e.AddItem(ctx, "s", p)
	require.NoError(t, err)

	c, err := e.SetQuantity(ctx, "s", p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Lines[0].Quantity)

	c, err = e.SetQuantity(ctx, "s", p.ID, 5)
	require.NoError(t, err)
	assert.True(t, c.Total().Equal(price("10.00")))

	c, err = e.RemoveItem(ctx, "s", p.ID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestEngine_ConcurrentAddsAreSerialized(t *testing.T) {
	e := NewEngine(NewMemoryStore())
	ctx := context.Background()
	p := testProduct("1.00")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.AddItem(ctx, "s", p)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := e.Get(ctx, "s")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, n, c.Lines[0].Quantity)
	assert.Equal(t, 0, e.locks.size())
}

func TestEngine_DestroyRemovesCart(t *testing.T) {
	store := NewMemoryStore()
	e := NewEngine(store)
	ctx := context.Background()

	_, err := e.AddItem(ctx, "s", testProduct("1.00"))
	require.NoError(t, err)
	require.NoError(t, e.Destroy(ctx, "s"))

	store.mu.RLock()
	_, ok := store.carts["s"]
	store.mu.RUnlock()
	assert.False(t, ok)
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) Save(context.Context, string, *Cart) error { return f.err }

func TestEngine_SaveErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	e := NewEngine(failingStore{Store: NewMemoryStore(), err: boom})

	_, err := e.AddItem(context.Background(), "s", testProduct("1.00"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, e.locks.size())
}
