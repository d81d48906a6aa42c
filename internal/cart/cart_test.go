package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fz-restaurant/internal/apperr"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setup(ttl time.Duration) (*Service, *MemoryStore, *clock) {
	c := &clock{t: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.now
	svc := NewService(store, ttl)
	svc.now = c.now
	return svc, store, c
}

func tikka(qty int) Item {
	return Item{MenuItemID: "m1", Name: "Paneer Tikka", Price: decimal.NewFromInt(140), Quantity: qty}
}

func TestAddItemMergesLines(t *testing.T) {
	svc, _, _ := setup(time.Hour)
	ctx := context.Background()

	d, err := svc.Get(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, d.Items)
	assert.True(t, d.Subtotal.IsZero())

	_, err = svc.AddItem(ctx, 5, tikka(1))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 5, tikka(1))
	require.NoError(t, err)
	spicy := tikka(1)
	spicy.SpecialInstructions = "extra spicy"
	_, err = svc.AddItem(ctx, 5, spicy)
	require.NoError(t, err)
	d, err = svc.AddItem(ctx, 5, Item{MenuItemID: "m2", Name: "Naan", Price: decimal.NewFromInt(120), Quantity: 1})
	require.NoError(t, err)

	require.Len(t, d.Items, 3)
	assert.Equal(t, 2, d.Items[0].Quantity)
	assert.Equal(t, "extra spicy", d.Items[1].SpecialInstructions)
	assert.Equal(t, "540", d.Subtotal.String())

	again, err := svc.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, d.Subtotal.String(), again.Subtotal.String())

	other, err := svc.Get(ctx, 6)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestAddItemValidation(t *testing.T) {
	svc, _, _ := setup(time.Hour)
	ctx := context.Background()

	bad := []Item{
		{Name: "No id", Price: decimal.NewFromInt(1), Quantity: 1},
		{MenuItemID: "x", Name: " ", Price: decimal.NewFromInt(1), Quantity: 1},
		{MenuItemID: "x", Name: "Neg", Price: decimal.NewFromInt(-1), Quantity: 1},
		{MenuItemID: "x", Name: "Zero", Price: decimal.NewFromInt(1), Quantity: 0},
	}
	for _, it := range bad {
		_, err := svc.AddItem(ctx, 1, it)
		assert.ErrorIs(t, err, apperr.ErrValidation, it.Name)
	}

	_, err := svc.AddItem(ctx, 0, tikka(1))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, store, _ := setup(time.Hour)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 2, tikka(2))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 2, Item{MenuItemID: "m2", Name: "Naan", Price: decimal.NewFromInt(120), Quantity: 1})
	require.NoError(t, err)

	d, err := svc.RemoveItem(ctx, 2, "m1")
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.Equal(t, "120", d.Subtotal.String())

	_, err = svc.RemoveItem(ctx, 2, "m1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	d, err = svc.RemoveItem(ctx, 2, "m2")
	require.NoError(t, err)
	assert.Empty(t, d.Items)
	assert.Zero(t, store.Len())

	_, err = svc.AddItem(ctx, 2, tikka(1))
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, 2))
	d, err = svc.Get(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, d.Items)
}

func TestDraftsExpire(t *testing.T) {
	svc, store, c := setup(30 * time.Minute)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, tikka(1))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 2, tikka(1))
	require.NoError(t, err)

	c.advance(20 * time.Minute)
	_, err = svc.AddItem(ctx, 2, tikka(1))
	require.NoError(t, err, "writes refresh the ttl")

	c.advance(15 * time.Minute)
	d, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, d.Items, "lazy expiry on read")

	assert.Equal(t, 1, store.Len())
	c.advance(time.Hour)
	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
}

func TestRunStopsWithContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "restaurant:cart:12", redisKey(12))
}
