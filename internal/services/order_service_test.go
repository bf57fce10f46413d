package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ocha/internal/apperr"
	"ocha/internal/events"
	"ocha/internal/idempotency"
	"ocha/internal/models"
	"ocha/internal/repositories"
	"ocha/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	storeID = "5b0e4a4e-1f1a-4c61-9a39-6f0d3c1f0a01"
	orderID = "9d7f3b0c-2c55-4b8e-9f44-0c2f5d8a1b02"
	userID  = "u-alice"
)

func matchaLatte() *models.Product {
	p := &models.Product{
		ID:        "p-matcha",
		Name:      "Matcha Latte",
		BasePrice: decimal.RequireFromString("5.9"),
		IsActive:  true,
	}
	p.ApplyDefaults()
	return p
}

func hojicha() *models.Product {
	return &models.Product{
		ID:            "p-hojicha",
		Name:          "Hojicha",
		BasePrice:     decimal.RequireFromString("4.5"),
		Sizes:         models.SizeSet{models.SizeSmall, models.SizeMedium},
		SizeSurcharge: models.SurchargeTable{models.SizeSmall: decimal.Zero},
	}
}

type orderDeps struct {
	orders   *MockOrderRepository
	products *MockProductRepository
	stores   *MockStoreRepository
	sink     *MockSink
}

func newOrderService(transitions models.TransitionTable) (*services.OrderService, *orderDeps) {
	d := &orderDeps{
		orders:   new(MockOrderRepository),
		products: new(MockProductRepository),
		stores:   new(MockStoreRepository),
		sink:     new(MockSink),
	}
	return services.NewOrderService(d.orders, d.products, d.stores, d.sink, transitions), d
}

func pickup() *time.Time {
	t := time.Date(2026, 10, 16, 15, 30, 0, 0, time.UTC)
	return &t
}

func TestPriceLine(t *testing.T) {
	p := matchaLatte()

	price, err := services.PriceLine(p, models.SizeLarge, 2)
	require.NoError(t, err)
	assert.Equal(t, "17.8", price.Final.String())
	assert.True(t, price.Extra.Equal(decimal.NewFromInt(3)))
	assert.True(t, price.Base.Equal(decimal.RequireFromString("5.9")))

	price, err = services.PriceLine(p, models.SizeSmall, 3)
	require.NoError(t, err)
	assert.Equal(t, "17.7", price.Final.String())

	_, err = services.PriceLine(p, "XL", 1)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidSize))

	_, err = services.PriceLine(p, models.SizeMedium, 0)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidQuantity))
	_, err = services.PriceLine(p, models.SizeMedium, -1)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidQuantity))

	h := hojicha()
	price, err = services.PriceLine(h, models.SizeMedium, 1)
	require.NoError(t, err)
	assert.Equal(t, "4.5", price.Final.String(), "missing surcharge entry costs nothing")

	_, err = services.PriceLine(h, models.SizeLarge, 1)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidSize), "size not offered")
}

func TestPriceLineRoundsToCents(t *testing.T) {
	p := &models.Product{Name: "Yuzu", BasePrice: decimal.RequireFromString("3.333"), SizeSurcharge: models.DefaultSurcharges()}
	price, err := services.PriceLine(p, models.SizeSmall, 3)
	require.NoError(t, err)
	assert.Equal(t, "10", price.Final.String())
}

func TestOrderService_CreateOrder(t *testing.T) {
	svc, d := newOrderService(nil)
	ctx := context.Background()

	d.stores.On("Exists", storeID).Return(true, nil).Once()
	d.products.On("GetByIDs", []string{"p-matcha", "p-hojicha"}).
		Return(map[string]*models.Product{"p-matcha": matchaLatte(), "p-hojicha": hojicha()}, nil).Once()

	var saved *models.Order
	d.orders.On("CreateWithItems", mock.AnythingOfType("*models.Order")).Run(func(args mock.Arguments) {
		saved = args.Get(0).(*models.Order)
		saved.ID = orderID
	}).Return(nil).Once()
	enriched := &models.Order{ID: orderID, UserID: userID, Status: models.StatusPreparing,
		Store: &models.Store{ID: storeID}, User: &models.UserSummary{ID: userID, DisplayName: "alice"}}
	d.orders.On("GetByID", orderID).Return(enriched, nil).Once()
	d.sink.On("Publish", events.TypeOrderCreated, orderID).Return(nil).Once()

	order, replayed, err := svc.CreateOrder(ctx, userID, services.CreateOrderInput{
		StoreID: storeID,
		Pickup:  pickup(),
		Items: []services.CartLine{
			{ProductID: "p-matcha", Size: "L", Quantity: 2},
			{ProductID: "p-hojicha", Size: "M", Quantity: 1},
		},
	}, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Same(t, enriched, order)

	require.NotNil(t, saved)
	assert.Equal(t, userID, saved.UserID)
	assert.Equal(t, models.StatusPreparing, saved.Status)
	require.Len(t, saved.Items, 2)
	assert.Equal(t, "Matcha Latte", saved.Items[0].ProductNameSnapshot)
	assert.Equal(t, "17.8", saved.Items[0].FinalPrice.String())
	assert.Equal(t, "3", saved.Items[0].ExtraSnapshot.String())
	assert.Equal(t, "4.5", saved.Items[1].FinalPrice.String())

	sum := decimal.Zero
	for _, it := range saved.Items {
		sum = sum.Add(it.FinalPrice)
	}
	assert.True(t, saved.TotalPrice.Equal(sum))
	assert.Equal(t, "22.3", saved.TotalPrice.String())

	d.orders.AssertExpectations(t)
	d.products.AssertExpectations(t)
	d.sink.AssertExpectations(t)
}

func TestOrderService_CreateOrderMissingFieldsInOrder(t *testing.T) {
	svc, d := newOrderService(nil)
	ctx := context.Background()
	line := []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}}

	cases := []struct {
		in    services.CreateOrderInput
		field string
	}{
		{services.CreateOrderInput{}, "store_id"},
		{services.CreateOrderInput{Items: line}, "store_id"},
		{services.CreateOrderInput{StoreID: storeID, Items: line}, "pickup"},
		{services.CreateOrderInput{StoreID: storeID, Pickup: pickup()}, "items"},
	}
	for _, tc := range cases {
		_, _, err := svc.CreateOrder(ctx, userID, tc.in, "")
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeMissingField, e.Code)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Equal(t, tc.field, e.Field)
	}
	d.stores.AssertNotCalled(t, "Exists", mock.Anything)
	d.orders.AssertNotCalled(t, "CreateWithItems", mock.Anything)
}

func TestOrderService_CreateOrderUnknownStore(t *testing.T) {
	svc, d := newOrderService(nil)
	d.stores.On("Exists", storeID).Return(false, nil).Once()

	_, _, err := svc.CreateOrder(context.Background(), userID, services.CreateOrderInput{
		StoreID: storeID,
		Pickup:  pickup(),
		Items:   []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}},
	}, "")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, apperr.CodeStoreNotFound))
	d.products.AssertNotCalled(t, "GetByIDs", mock.Anything)
	d.orders.AssertNotCalled(t, "CreateWithItems", mock.Anything)
}

func TestOrderService_CreateOrderInvalidCartLine(t *testing.T) {
	svc, d := newOrderService(nil)
	d.stores.On("Exists", storeID).Return(true, nil)

	for _, line := range []services.CartLine{
		{Size: "S", Quantity: 1},
		{ProductID: "p-matcha", Quantity: 1},
		{ProductID: "p-matcha", Size: "S"},
	} {
		_, _, err := svc.CreateOrder(context.Background(), userID, services.CreateOrderInput{
			StoreID: storeID,
			Pickup:  pickup(),
			Items:   []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}, line},
		}, "")
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeInvalidCartLine, e.Code)
		assert.Equal(t, "items[1]", e.Field)
	}
	d.products.AssertNotCalled(t, "GetByIDs", mock.Anything)
	d.orders.AssertNotCalled(t, "CreateWithItems", mock.Anything)
}

func TestOrderService_CreateOrderRejectsBadLineBeforeLookup(t *testing.T) {
	svc, d := newOrderService(nil)
	d.stores.On("Exists", storeID).Return(true, nil)

	cases := map[services.CartLine]apperr.Code{
		{ProductID: "p-matcha", Size: "S", Quantity: -2}: apperr.CodeInvalidQuantity,
		{ProductID: "p-ghost", Size: "S", Quantity: -1}:  apperr.CodeInvalidQuantity,
		{ProductID: "p-matcha", Size: "XL", Quantity: 1}: apperr.CodeInvalidSize,
		{ProductID: "p-matcha", Size: "m", Quantity: 1}:  apperr.CodeInvalidSize,
	}
	for line, code := range cases {
		_, _, err := svc.CreateOrder(context.Background(), userID, services.CreateOrderInput{
			StoreID: storeID,
			Pickup:  pickup(),
			Items:   []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}, line},
		}, "")
		e, ok := apperr.As(err)
		require.True(t, ok, "%+v", line)
		assert.Equal(t, code, e.Code, "%+v", line)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Equal(t, "items[1]", e.Field)
	}
	d.products.AssertNotCalled(t, "GetByIDs", mock.Anything)
	d.orders.AssertNotCalled(t, "CreateWithItems", mock.Anything)
}

func TestOrderService_CreateOrderUnknownProductWritesNothing(t *testing.T) {
	svc, d := newOrderService(nil)
	d.stores.On("Exists", storeID).Return(true, nil).Once()
	d.products.On("GetByIDs", mock.Anything).
		Return(map[string]*models.Product{"p-matcha": matchaLatte()}, nil).Once()

	_, _, err := svc.CreateOrder(context.Background(), userID, services.CreateOrderInput{
		StoreID: storeID,
		Pickup:  pickup(),
		Items: []services.CartLine{
			{ProductID: "p-matcha", Size: "S", Quantity: 1},
			{ProductID: "p-matcha", Size: "M", Quantity: 1},
			{ProductID: "p-ghost", Size: "S", Quantity: 1},
		},
	}, "")
	assert.True(t, apperr.Is(err, apperr.CodeProductNotFound))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	d.orders.AssertNotCalled(t, "CreateWithItems", mock.Anything)
	d.sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrderRepositoryFailurePropagates(t *testing.T) {
	svc, d := newOrderService(nil)
	d.stores.On("Exists", storeID).Return(true, nil).Once()
	d.products.On("GetByIDs", mock.Anything).
		Return(map[string]*models.Product{"p-matcha": matchaLatte()}, nil).Once()
	d.orders.On("CreateWithItems", mock.Anything).Return(apperr.Internal(errors.New("disk full"), "database error")).Once()

	_, _, err := svc.CreateOrder(context.Background(), userID, services.CreateOrderInput{
		StoreID: storeID,
		Pickup:  pickup(),
		Items:   []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}},
	}, "")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	d.sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrderEventFailureDoesNotFailRequest(t *testing.T) {
	svc, d := newOrderService(nil)
	d.stores.On("Exists", storeID).Return(true, nil).Once()
	d.products.On("GetByIDs", mock.Anything).
		Return(map[string]*models.Product{"p-matcha": matchaLatte()}, nil).Once()
	d.orders.On("CreateWithItems", mock.Anything).Run(func(args mock.Arguments) {
		args.Get(0).(*models.Order).ID = orderID
	}).Return(nil).Once()
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID}, nil).Once()
	d.sink.On("Publish", events.TypeOrderCreated, orderID).Return(errors.New("broker down")).Once()

	order, _, err := svc.CreateOrder(context.Background(), userID, services.CreateOrderInput{
		StoreID: storeID,
		Pickup:  pickup(),
		Items:   []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, orderID, order.ID)
}

func TestOrderService_CreateOrderIdempotency(t *testing.T) {
	ctx := context.Background()
	input := services.CreateOrderInput{
		StoreID: storeID,
		Pickup:  pickup(),
		Items:   []services.CartLine{{ProductID: "p-matcha", Size: "S", Quantity: 1}},
	}

	t.Run("replay returns the first order", func(t *testing.T) {
		svc, d := newOrderService(nil)
		idem := new(MockIdempotencyStore)
		svc.WithIdempotency(idem)

		idem.On("Reserve", userID, "k1").Return(orderID, false, nil).Once()
		d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID}, nil).Once()

		order, replayed, err := svc.CreateOrder(ctx, userID, input, "k1")
		require.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, orderID, order.ID)
		d.stores.AssertNotCalled(t, "Exists", mock.Anything)
		idem.AssertExpectations(t)
	})

	t.Run("first use completes the key", func(t *testing.T) {
		svc, d := newOrderService(nil)
		idem := new(MockIdempotencyStore)
		svc.WithIdempotency(idem)

		idem.On("Reserve", userID, "k2").Return("", true, nil).Once()
		d.stores.On("Exists", storeID).Return(true, nil).Once()
		d.products.On("GetByIDs", mock.Anything).
			Return(map[string]*models.Product{"p-matcha": matchaLatte()}, nil).Once()
		d.orders.On("CreateWithItems", mock.Anything).Run(func(args mock.Arguments) {
			args.Get(0).(*models.Order).ID = orderID
		}).Return(nil).Once()
		d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID}, nil).Once()
		d.sink.On("Publish", events.TypeOrderCreated, orderID).Return(nil).Once()
		idem.On("Complete", userID, "k2", orderID).Return(nil).Once()

		_, replayed, err := svc.CreateOrder(ctx, userID, input, "k2")
		require.NoError(t, err)
		assert.False(t, replayed)
		idem.AssertExpectations(t)
	})

	t.Run("failure releases the key", func(t *testing.T) {
		svc, d := newOrderService(nil)
		idem := new(MockIdempotencyStore)
		svc.WithIdempotency(idem)

		idem.On("Reserve", userID, "k3").Return("", true, nil).Once()
		d.stores.On("Exists", storeID).Return(false, nil).Once()
		idem.On("Release", userID, "k3").Return(nil).Once()

		_, _, err := svc.CreateOrder(ctx, userID, input, "k3")
		assert.True(t, apperr.Is(err, apperr.CodeStoreNotFound))
		idem.AssertExpectations(t)
		idem.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent use conflicts", func(t *testing.T) {
		svc, _ := newOrderService(nil)
		idem := new(MockIdempotencyStore)
		svc.WithIdempotency(idem)

		idem.On("Reserve", userID, "k4").Return("", false, idempotency.ErrInProgress).Once()
		_, _, err := svc.CreateOrder(ctx, userID, input, "k4")
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})
}

func TestOrderService_GetOwnOrdersPaginates(t *testing.T) {
	svc, d := newOrderService(nil)
	page := repositories.Page{Number: 2, Limit: 10}
	five := make([]models.Order, 5)
	d.orders.On("ListByUser", userID, repositories.OrderFilter{Status: models.StatusReady, StoreID: storeID}, page).
		Return(five, int64(15), nil).Once()

	res, err := svc.GetOwnOrders(context.Background(), userID, "ready", storeID, page)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2, res.TotalPages)
	assert.EqualValues(t, 15, res.TotalOrders)
	assert.Len(t, res.Orders, 5)

	_, err = svc.GetOwnOrders(context.Background(), userID, "shipped", "", page)
	assert.True(t, apperr.Is(err, apperr.CodeInvalidStatus))
}

func TestOrderService_GetOrderByID(t *testing.T) {
	svc, d := newOrderService(nil)
	ctx := context.Background()
	owned := &models.Order{ID: orderID, UserID: userID}
	d.orders.On("GetByID", orderID).Return(owned, nil)

	got, err := svc.GetOrderByID(ctx, models.Actor{UserID: userID, Role: models.RoleUser}, orderID)
	require.NoError(t, err)
	assert.Same(t, owned, got)

	_, err = svc.GetOrderByID(ctx, models.Actor{UserID: "u-bob", Role: models.RoleUser}, orderID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.GetOrderByID(ctx, models.Actor{UserID: "u-bob", Role: models.RoleAdmin}, orderID)
	assert.NoError(t, err)

	_, err = svc.GetOrderByID(ctx, models.Actor{UserID: userID}, "not-a-uuid")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidID))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	missing := "00000000-0000-4000-8000-000000000000"
	d.orders.On("GetByID", missing).Return(nil, apperr.NotFound(apperr.CodeOrderNotFound, "order not found")).Once()
	_, err = svc.GetOrderByID(ctx, models.Actor{UserID: userID}, missing)
	assert.True(t, apperr.Is(err, apperr.CodeOrderNotFound))
}

func TestOrderService_SetStatusAcceptsEveryLiteralFromPreparing(t *testing.T) {
	for _, to := range []models.Status{models.StatusPreparing, models.StatusReady, models.StatusCollected} {
		svc, d := newOrderService(nil)
		d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, Status: models.StatusPreparing}, nil).Once()
		if to != models.StatusPreparing {
			d.orders.On("UpdateStatus", orderID, models.StatusPreparing, to).Return(nil).Once()
			d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, Status: to}, nil).Once()
			d.sink.On("Publish", events.TypeOrderStatusChanged, orderID).Return(nil).Once()
		}

		got, err := svc.SetStatus(context.Background(), orderID, string(to))
		require.NoError(t, err, to)
		assert.Equal(t, to, got.Status)
		d.orders.AssertExpectations(t)
		d.sink.AssertExpectations(t)
	}
}

func TestOrderService_SetStatusRejectsUnknownValues(t *testing.T) {
	svc, d := newOrderService(nil)
	for _, s := range []string{"", "shipped", "READY", "pending"} {
		_, err := svc.SetStatus(context.Background(), orderID, s)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.CodeInvalidStatus, e.Code)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Contains(t, e.Message, s)
	}
	d.orders.AssertNotCalled(t, "GetByID", mock.Anything)
}

func TestOrderService_SetStatusTransitionPolicy(t *testing.T) {
	ctx := context.Background()

	forward, d := newOrderService(models.ForwardTransitions)
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, Status: models.StatusCollected}, nil).Once()
	_, err := forward.SetStatus(ctx, orderID, "preparing")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidTransition))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	d.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)

	rollback, d := newOrderService(models.RollbackTransitions)
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, Status: models.StatusCollected}, nil).Once()
	d.orders.On("UpdateStatus", orderID, models.StatusCollected, models.StatusPreparing).Return(nil).Once()
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, Status: models.StatusPreparing}, nil).Once()
	d.sink.On("Publish", events.TypeOrderStatusChanged, orderID).Return(nil).Once()
	got, err := rollback.SetStatus(ctx, orderID, "preparing")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, got.Status)
}

func TestOrderService_SetStatusLostRace(t *testing.T) {
	svc, d := newOrderService(nil)
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, Status: models.StatusPreparing}, nil).Once()
	d.orders.On("UpdateStatus", orderID, models.StatusPreparing, models.StatusReady).
		Return(apperr.Conflict(apperr.CodeInvalidTransition, "order is no longer preparing")).Once()

	_, err := svc.SetStatus(context.Background(), orderID, "ready")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	d.sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestOrderService_DeleteOrder(t *testing.T) {
	svc, d := newOrderService(nil)
	ctx := context.Background()
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, UserID: userID}, nil)

	err := svc.DeleteOrder(ctx, models.Actor{UserID: "u-bob"}, orderID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	d.orders.AssertNotCalled(t, "Delete", mock.Anything)

	d.orders.On("Delete", orderID).Return(nil).Once()
	d.sink.On("Publish", events.TypeOrderDeleted, orderID).Return(nil).Once()
	require.NoError(t, svc.DeleteOrder(ctx, models.Actor{UserID: userID}, orderID))
	d.orders.AssertExpectations(t)
	d.sink.AssertExpectations(t)
}

func TestOrderService_ListItemsAndStats(t *testing.T) {
	svc, d := newOrderService(nil)
	ctx := context.Background()
	d.orders.On("GetByID", orderID).Return(&models.Order{ID: orderID, UserID: userID}, nil).Once()
	d.orders.On("ListItems", orderID).Return([]models.OrderItem{{ID: "i1", Product: matchaLatte()}}, nil).Once()

	items, err := svc.ListItems(ctx, models.Actor{UserID: userID}, orderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Matcha Latte", items[0].Product.Name)

	d.orders.On("StatsByUser").Return([]models.UserOrderStats(nil), nil).Once()
	stats, err := svc.OrderStatsByUser(ctx)
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}
