package ordering

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/dbtest"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

const adminPassword = "s3cret"

var fixedNow = time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T) (*Service, *repository.Store, *realtime.Recorder) {
	store := repository.New(dbtest.Open(t))
	rec := &realtime.Recorder{}
	svc := NewService(store, rec, Config{AdminPassword: adminPassword, Location: time.UTC, NumberAttempts: 5})
	svc.now = func() time.Time { return fixedNow }
	return svc, store, rec
}

func intPtr(v int) *int                { return &v }
func strPtr(v string) *string          { return &v }
func floatPtr(v float64) *float64      { return &v }
func dec(v string) decimal.Decimal     { return decimal.RequireFromString(v) }
func decPtr(v string) *decimal.Decimal { d := dec(v); return &d }

func dineIn(table int, items ...ItemInput) CreateOrderInput {
	return CreateOrderInput{
		OrderType:     models.OrderTypeDineIn,
		CustomerName:  "Asha",
		CustomerPhone: "9000000001",
		TableID:       intPtr(table),
		Items:         items,
	}
}

func delivery(lat, lng *float64, items ...ItemInput) CreateOrderInput {
	return CreateOrderInput{
		OrderType:       models.OrderTypeDelivery,
		CustomerName:    "Ravi",
		CustomerPhone:   "9000000002",
		DeliveryAddress: strPtr("12 MG Road"),
		Latitude:        lat,
		Longitude:       lng,
		Items:           items,
	}
}

func line(name, price string, qty int) ItemInput {
	return ItemInput{MenuItemID: strings.ToLower(name), Name: name, Category: "mains", Price: dec(price), Quantity: qty}
}

// north returns a latitude km kilometres due north of the test origin.
func north(km float64) *float64 {
	return floatPtr(dbtest.Latitude + km/111.195)
}

func TestCreateDineInOrder(t *testing.T) {
	svc, store, rec := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, dineIn(5, line("Paneer Tikka", "140", 2), line("Butter Naan", "120", 1)))
	require.NoError(t, err)

	assert.Equal(t, "FZ-20240131-001", order.OrderNumber)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.True(t, dec("400").Equal(order.Subtotal))
	assert.True(t, order.DeliveryFee.IsZero())
	assert.True(t, dec("400").Equal(order.Total))
	assert.Nil(t, order.DeliveryAddress)
	require.NotNil(t, order.TableID)
	assert.Equal(t, 5, *order.TableID)

	stored, err := store.OrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.True(t, dec("280").Equal(stored.Items[0].Subtotal))

	customer, err := store.CustomerByPhone(ctx, "9000000001")
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalOrders)
	assert.True(t, dec("400").Equal(customer.TotalSpent))

	session, err := store.ActiveSession(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, models.SessionOrdering, session.Status)
	assert.True(t, dec("400").Equal(session.TotalAmount))

	events := rec.Named(realtime.EventNewOrder)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].Data.(*models.Order).ID)
}

func TestDineInOrdersAccumulateOnSession(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, &models.TableSession{
		TableID: 3, SessionStart: fixedNow, Status: models.SessionOccupied,
		TotalAmount: decimal.Zero, PaymentStatus: models.SessionUnpaid,
	}))

	_, err := svc.CreateOrder(ctx, dineIn(3, line("Dal", "90", 1)))
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, dineIn(3, line("Rice", "60.50", 2)))
	require.NoError(t, err)

	session, err := store.ActiveSession(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.SessionOrdering, session.Status)
	assert.True(t, dec("211").Equal(session.TotalAmount), session.TotalAmount.String())
	assert.Equal(t, "Asha", session.CustomerName)
}

func TestCreateDeliveryOrder(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, delivery(north(1.5), floatPtr(dbtest.Longitude), line("Biryani", "250", 1)))
	require.NoError(t, err)

	assert.True(t, dec("30").Equal(order.DeliveryFee), order.DeliveryFee.String())
	assert.True(t, dec("280").Equal(order.Total))
	require.NotNil(t, order.DeliveryDistance)
	assert.InDelta(t, 1.5, *order.DeliveryDistance, 0.01)
	assert.Nil(t, order.TableID)

	customer, err := store.CustomerByPhone(ctx, "9000000002")
	require.NoError(t, err)
	require.Len(t, customer.Addresses, 1)
	assert.Equal(t, "12 MG Road", customer.Addresses[0].Address)

	_, err = store.ActiveSession(ctx, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeliveryFeeFromZoneTable(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.ReplaceDeliveryZones(ctx, []models.DeliveryZone{
			{Name: "A", MaxDistance: 1, DeliveryFee: dec("0"), MinOrderAmount: decimal.Zero, IsActive: true},
			{Name: "B", MaxDistance: 2, DeliveryFee: dec("30"), MinOrderAmount: decimal.Zero, IsActive: true},
			{Name: "C", MaxDistance: 5, DeliveryFee: dec("50"), MinOrderAmount: decimal.Zero, IsActive: true},
		})
	}))

	order, err := svc.CreateOrder(ctx, delivery(north(1.5), floatPtr(dbtest.Longitude), line("Soup", "80", 1)))
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(order.DeliveryFee))
	assert.True(t, dec("110").Equal(order.Total))
}

func TestDeliveryEdgeCases(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	t.Run("missing coordinates charge nothing", func(t *testing.T) {
		order, err := svc.CreateOrder(ctx, delivery(nil, nil, line("Tea", "20", 1)))
		require.NoError(t, err)
		assert.True(t, order.DeliveryFee.IsZero())
		assert.Nil(t, order.DeliveryDistance)
		assert.True(t, dec("20").Equal(order.Total))
	})

	t.Run("outside every zone", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, delivery(north(20), floatPtr(dbtest.Longitude), line("Thali", "900", 1)))
		assert.ErrorIs(t, err, apperr.ErrOutsideDeliveryArea)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("below zone minimum", func(t *testing.T) {
		_, err := svc.CreateOrder(ctx, delivery(north(4), floatPtr(dbtest.Longitude), line("Tea", "20", 1)))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("caller supplied fee", func(t *testing.T) {
		in := delivery(nil, nil, line("Tea", "20", 1))
		in.DeliveryFee = decPtr("15")
		order, err := svc.CreateOrder(ctx, in)
		require.NoError(t, err)
		assert.True(t, dec("35").Equal(order.Total))
	})

	t.Run("delivery disabled", func(t *testing.T) {
		settings, err := store.Settings(ctx)
		require.NoError(t, err)
		settings.DeliveryEnabled = false
		require.NoError(t, store.SaveSettings(ctx, settings))

		_, err = svc.CreateOrder(ctx, delivery(nil, nil, line("Tea", "20", 1)))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestCreateOrderValidation(t *testing.T) {
	svc, store, rec := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *CreateOrderInput)
	}{
		{"no items", func(in *CreateOrderInput) { in.Items = nil }},
		{"no name", func(in *CreateOrderInput) { in.CustomerName = "  " }},
		{"no phone", func(in *CreateOrderInput) { in.CustomerPhone = "" }},
		{"unknown type", func(in *CreateOrderInput) { in.OrderType = "takeaway" }},
		{"no table", func(in *CreateOrderInput) { in.TableID = nil }},
		{"table out of range", func(in *CreateOrderInput) { in.TableID = intPtr(dbtest.TotalTables + 1) }},
		{"table zero", func(in *CreateOrderInput) { in.TableID = intPtr(0) }},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *CreateOrderInput) { in.Items[0].Price = dec("-1") }},
		{"unnamed item", func(in *CreateOrderInput) { in.Items[0].Name = "" }},
		{"negative discount", func(in *CreateOrderInput) { in.Discount = dec("-5") }},
		{"discount above total", func(in *CreateOrderInput) { in.Discount = dec("500") }},
		{"delivery without address", func(in *CreateOrderInput) {
			in.OrderType = models.OrderTypeDelivery
			in.TableID = nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := dineIn(2, line("Dosa", "100", 1))
			tt.mutate(&in)
			_, err := svc.CreateOrder(ctx, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	orders, err := store.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, rec.Events())
}

func TestTotalsInvariant(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	in := dineIn(7, line("Kebab", "199.99", 3), line("Lassi", "45.5", 2), line("Water", "0", 1))
	in.Discount = dec("50")
	order, err := svc.CreateOrder(ctx, in)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, it := range order.Items {
		assert.True(t, it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Subtotal))
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, sum.Equal(order.Subtotal))
	assert.True(t, order.Subtotal.Add(order.DeliveryFee).Sub(order.Discount).Equal(order.Total))
	assert.Equal(t, "640.97", order.Total.StringFixed(2))
}

func TestOrderNumbers(t *testing.T) {
	t.Run("sequential per day", func(t *testing.T) {
		svc, _, _ := setupService(t)
		ctx := context.Background()
		for i, want := range []string{"FZ-20240131-001", "FZ-20240131-002", "FZ-20240131-003"} {
			order, err := svc.CreateOrder(ctx, dineIn(i+1, line("Tea", "20", 1)))
			require.NoError(t, err)
			assert.Equal(t, want, order.OrderNumber)
		}

		svc.now = func() time.Time { return fixedNow.Add(24 * time.Hour) }
		order, err := svc.CreateOrder(ctx, dineIn(9, line("Tea", "20", 1)))
		require.NoError(t, err)
		assert.Equal(t, "FZ-20240201-001", order.OrderNumber)
	})

	t.Run("collision retries with next counter", func(t *testing.T) {
		svc, store, _ := setupService(t)
		ctx := context.Background()

		_, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 1)))
		require.NoError(t, err)
		squatter := &models.Order{
			OrderNumber: "FZ-20240131-002", OrderType: models.OrderTypeDineIn, CustomerID: 1,
			CustomerName: "X", CustomerPhone: "1", TableID: intPtr(2), Subtotal: decimal.Zero,
			Total: decimal.Zero, Status: models.OrderCancelled,
		}
		require.NoError(t, store.CreateOrder(ctx, squatter))
		// the squatter bumps the count, so delete the first order to force a collision
		require.NoError(t, store.DeleteOrder(ctx, 1))

		order, err := svc.CreateOrder(ctx, dineIn(3, line("Tea", "20", 1)))
		require.NoError(t, err)
		assert.Equal(t, "FZ-20240131-003", order.OrderNumber)

		stored, err := store.OrderByID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, stored.Items, 1)
		assert.Equal(t, "Tea", stored.Items[0].ItemName)
		assert.Equal(t, "20", stored.Total.String())

		customer, err := store.CustomerByPhone(ctx, "9000000001")
		require.NoError(t, err)
		assert.Equal(t, 2, customer.TotalOrders, "rolled back attempt must not count")
	})

	t.Run("last attempt uses timestamp suffix", func(t *testing.T) {
		svc, store, _ := setupService(t)
		svc.cfg.NumberAttempts = 2
		ctx := context.Background()

		squatters := []string{"FZ-20240131-001", "FZ-20240131-002"}
		for i, n := range squatters {
			require.NoError(t, store.CreateOrder(ctx, &models.Order{
				OrderNumber: n, OrderType: models.OrderTypeDineIn, CustomerID: 1,
				CustomerName: "X", CustomerPhone: "1", TableID: intPtr(10 + i), Subtotal: decimal.Zero,
				Total: decimal.Zero, Status: models.OrderCancelled,
			}))
		}
		require.NoError(t, store.DeleteOrder(ctx, 1))

		order, err := svc.CreateOrder(ctx, dineIn(4, line("Tea", "20", 1)))
		require.NoError(t, err)
		assert.Regexp(t, `^FZ-20240131-1706702400000-[0-9A-F]{8}$`, order.OrderNumber)
		assert.LessOrEqual(t, len(order.OrderNumber), 40)
	})

	t.Run("fallbacks in the same millisecond stay distinct", func(t *testing.T) {
		svc, store, _ := setupService(t)
		svc.cfg.NumberAttempts = 2
		ctx := context.Background()

		var ids []int64
		for i := 0; i < 3; i++ {
			order, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 1)))
			require.NoError(t, err)
			ids = append(ids, order.ID)
		}

		// each delete lowers the count so the next create lands on 003 and
		// falls back under the same fixed clock
		require.NoError(t, store.DeleteOrder(ctx, ids[0]))
		first, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 1)))
		require.NoError(t, err)

		require.NoError(t, store.DeleteOrder(ctx, ids[1]))
		second, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 1)))
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(first.OrderNumber, "FZ-20240131-1706702400000-"), first.OrderNumber)
		assert.True(t, strings.HasPrefix(second.OrderNumber, "FZ-20240131-1706702400000-"), second.OrderNumber)
		assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	})
}

func TestCloneOrderIsolatesAttempts(t *testing.T) {
	draft := &models.Order{
		OrderType: models.OrderTypeDineIn,
		Items:     []models.OrderItem{{ItemName: "Tea", Quantity: 1}},
	}

	attempt := cloneOrder(draft)
	attempt.ID = 7
	attempt.OrderNumber = "FZ-20240131-001"
	attempt.Items[0].ID = 11
	attempt.Items[0].OrderID = 7

	assert.Zero(t, draft.ID)
	assert.Empty(t, draft.OrderNumber)
	assert.Zero(t, draft.Items[0].ID)
	assert.Zero(t, draft.Items[0].OrderID)

	next := cloneOrder(draft)
	assert.Zero(t, next.ID)
	assert.Equal(t, "Tea", next.Items[0].ItemName)
}

func TestConcurrentOrderNumbersAreDistinct(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	const n = 12
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(table int) {
			defer wg.Done()
			order, err := svc.CreateOrder(ctx, dineIn(table, line("Tea", "20", 1)))
			if err != nil {
				errs <- err
				return
			}
			numbers <- order.OrderNumber
		}(i%4 + 1)
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Errorf("create failed: %v", err)
	}
	seen := map[string]bool{}
	for num := range numbers {
		assert.False(t, seen[num], "duplicate order number %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
}

func TestUpdateStatus(t *testing.T) {
	svc, _, rec := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 1)))
	require.NoError(t, err)
	rec.Reset()

	updated, err := svc.UpdateStatus(ctx, order.ID, models.OrderReady)
	require.NoError(t, err)
	assert.Equal(t, models.OrderReady, updated.Status)
	assert.Nil(t, updated.CompletedAt)

	events := rec.Named(realtime.EventOrderStatusUpdated)
	require.Len(t, events, 1)
	assert.Equal(t, StatusUpdate{OrderID: order.ID, Status: models.OrderReady}, events[0].Data)

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderReady)
	require.NoError(t, err)
	assert.Len(t, rec.Named(realtime.EventOrderStatusUpdated), 1, "same status is not broadcast")

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderPreparing)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	updated, err = svc.UpdateStatus(ctx, order.ID, models.OrderCompleted)
	require.NoError(t, err)
	assert.NotNil(t, updated.CompletedAt)

	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderCancelled)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.UpdateStatus(ctx, order.ID, "served")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateStatus(ctx, order.ID, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.UpdateStatus(ctx, 9999, models.OrderReady)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelFromAnyOpenStatus(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	for _, from := range []models.OrderStatus{models.OrderPending, models.OrderPreparing, models.OrderReady} {
		order, err := svc.CreateOrder(ctx, dineIn(2, line("Tea", "20", 1)))
		require.NoError(t, err)
		if from != models.OrderPending {
			_, err = svc.UpdateStatus(ctx, order.ID, from)
			require.NoError(t, err)
		}
		cancelled, err := svc.UpdateStatus(ctx, order.ID, models.OrderCancelled)
		require.NoError(t, err, "from %s", from)
		assert.NotNil(t, cancelled.CompletedAt)
	}
}

func TestDeleteOrder(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 2), line("Samosa", "15", 3)))
	require.NoError(t, err)

	_, err = svc.DeleteOrder(ctx, order.ID, "wrong")
	assert.ErrorIs(t, err, apperr.ErrWrongPassword)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = store.OrderByID(ctx, order.ID)
	require.NoError(t, err)

	_, err = svc.DeleteOrder(ctx, order.ID, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	deleted, err := svc.DeleteOrder(ctx, order.ID, adminPassword)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, deleted.OrderNumber)
	assert.Len(t, deleted.Items, 2)

	_, err = store.OrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	items, err := store.CountOrderItems(ctx, order.ID)
	require.NoError(t, err)
	assert.Zero(t, items)

	_, err = svc.DeleteOrder(ctx, order.ID, adminPassword)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestHistory(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, dineIn(1, line("Tea", "20", 1)))
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, dineIn(2, line("Tea", "20", 1)))
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, order.ID, models.OrderCompleted)
	require.NoError(t, err)

	history, err := svc.History(ctx, HistoryQuery{CustomerPhone: "9000000001"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)

	today := time.Now().UTC().Format("2006-01-02")
	history, err = svc.History(ctx, HistoryQuery{StartDate: today, EndDate: today})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.History(ctx, HistoryQuery{StartDate: "31/01/2024"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.History(ctx, HistoryQuery{StartDate: "2024-02-02", EndDate: "2024-02-01"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
