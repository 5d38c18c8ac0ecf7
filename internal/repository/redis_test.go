package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/model"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

var joyBox = model.Product{ID: 1, Name: "Celebration Box", Price: decimal.RequireFromString("39.99")}

func TestCartStore_EmptyWhenMissing(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewCartStore(client, time.Hour)

	cart, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartStore_UpdatePersistsWithTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	_, err := store.Update(ctx, "s1", func(c *model.Cart) error {
		c.Add(joyBox, 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("cart:s1"))

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Subtotal().Equal(decimal.RequireFromString("79.98")))

	// carts belong to one session only
	other, err := store.Get(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestCartStore_EmptiedCartIsDeleted(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	_, err := store.Update(ctx, "s1", func(c *model.Cart) error { c.Add(joyBox, 1); return nil })
	require.NoError(t, err)
	_, err = store.Update(ctx, "s1", func(c *model.Cart) error { c.Remove(joyBox.ID); return nil })
	require.NoError(t, err)

	assert.False(t, mr.Exists("cart:s1"))
}

func TestCartStore_UpdateErrorLeavesCart(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := store.Update(ctx, "s1", func(c *model.Cart) error { c.Add(joyBox, 1); return nil })
	require.NoError(t, err)
	_, err = store.Update(ctx, "s1", func(c *model.Cart) error { c.Clear(); return boom })
	assert.ErrorIs(t, err, boom)

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
}

func TestCartStore_ConcurrentAddsAreNotLost(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewCartStore(client, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "s1", func(c *model.Cart) error { c.Add(joyBox, 1); return nil })
		}()
	}
	wg.Wait()

	cart, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 4, cart.ItemCount())
}

func TestFlowStore_RoundTrip(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewFlowStore(client, 24*time.Hour)
	ctx := context.Background()

	flow, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StateIdle, flow.State)

	flow.State = checkout.StateFilling
	flow.Shipping.Zip = "12345"
	require.NoError(t, store.Save(ctx, "s1", flow))
	assert.Equal(t, 24*time.Hour, mr.TTL("checkout:s1"))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, checkout.StateFilling, got.State)
	assert.Equal(t, "12345", got.Shipping.Zip)
}

func TestOTPStore_Lifecycle(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewOTPStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a@b.co", "hash1", 10*time.Minute))
	rec, err := store.Get(ctx, "a@b.co")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "hash1", rec.Hash)
	assert.Equal(t, 0, rec.Attempts)

	n, err := store.IncrementAttempts(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// a new code replaces the old one and resets the counter
	require.NoError(t, store.Save(ctx, "a@b.co", "hash2", 10*time.Minute))
	rec, err = store.Get(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Equal(t, "hash2", rec.Hash)
	assert.Equal(t, 0, rec.Attempts)

	deleted, err := store.Delete(ctx, "a@b.co")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.Delete(ctx, "a@b.co")
	require.NoError(t, err)
	assert.False(t, deleted)

	assert.False(t, mr.Exists("otp:a@b.co"))
}

func TestOTPStore_Expiry(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewOTPStore(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a@b.co", "hash", 10*time.Minute))
	mr.FastForward(11 * time.Minute)

	rec, err := store.Get(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Nil(t, rec)

	n, err := store.IncrementAttempts(ctx, "a@b.co")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, mr.Exists("otp:a@b.co"))
}

func TestTokenDenylist(t *testing.T) {
	mr, client := newTestRedis(t)
	list := NewTokenDenylist(client)
	ctx := context.Background()

	revoked, err := list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, "jti-1", time.Hour))
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = list.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStaticProductRepo(t *testing.T) {
	repo := NewStaticProductRepository()
	ctx := context.Background()

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 16)

	calm := model.MoodCalm
	calmOnly, err := repo.List(ctx, &calm)
	require.NoError(t, err)
	require.NotEmpty(t, calmOnly)
	for _, p := range calmOnly {
		assert.Equal(t, model.MoodCalm, p.Mood)
	}

	p, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1), p.ID)

	missing, err := repo.GetByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
