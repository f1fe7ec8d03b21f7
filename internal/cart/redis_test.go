package cart

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/models"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStore_LoadMissingIsEmpty(t *testing.T) {
	store, _ := setupRedisStore(t)

	c, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	c := &Cart{}
	id := uuid.New()
	c.AddItem(id, price("19.99"))
	c.AddItem(id, price("19.99"))
	require.NoError(t, store.Save(ctx, "sid", c))

	assert.True(t, mr.Exists("cart:sid"))
	assert.Equal(t, time.Hour, mr.TTL("cart:sid"))

	raw, err := mr.Get("cart:sid")
	require.NoError(t, err)
	var lines []models.CartLine
	require.NoError(t, json.Unmarshal([]byte(raw), &lines))
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	got, err := store.Load(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].UnitPrice.Equal(price("19.99")))
}

func TestRedisStore_SaveEmptyDeletesKey(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	c := &Cart{}
	c.AddItem(uuid.New(), price("1.00"))
	require.NoError(t, store.Save(ctx, "sid", c))

	c.Clear()
	require.NoError(t, store.Save(ctx, "sid", c))
	assert.False(t, mr.Exists("cart:sid"))
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	store, mr := setupRedisStore(t)
	require.NoError(t, mr.Set("cart:sid", "{not json"))

	_, err := store.Load(context.Background(), "sid")
	assert.Error(t, err)
}

func TestRedisStore_PublishesChanges(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	sub := store.Subscribe(ctx, "sid")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	c := &Cart{}
	c.AddItem(uuid.New(), price("1.00"))
	require.NoError(t, store.Save(ctx, "sid", c))
	require.NoError(t, store.Delete(ctx, "sid"))

	ch := sub.Channel()
	for _, want := range []string{EventUpdated, EventCleared} {
		select {
		case msg := <-ch:
			assert.Equal(t, "cart:sid", msg.Channel)
			assert.Equal(t, want, msg.Payload)
		case <-time.After(2 * time.Second):
			t.Fatalf("pas de notification %q", want)
		}
	}
}
