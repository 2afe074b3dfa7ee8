package payments

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/paypal/paypaltest"
)

func TestCheckoutToCaptureFlow(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "flow-test", Output: &bytes.Buffer{}})

	product := &models.Product{
		Name:      "Linen shirt",
		Price:     decimal.RequireFromString("40.00"),
		Stock:     5,
		Currency:  "USD",
		IsActive:  true,
		CreatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, conn.Create(product).Error)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn))
	require.NoError(t, err)

	var mu sync.Mutex
	persisters := map[string]*cart.MemoryPersister{}
	cartSvc, err := cart.NewService(catalogSvc, func(session string) cart.Persister {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := persisters[session]; ok {
			return p
		}
		p := cart.NewMemoryPersister(nil)
		persisters[session] = p
		return p
	}, nil, logg)
	require.NoError(t, err)

	_, err = cartSvc.AddItem(ctx, "session-1", product.ID, nil)
	require.NoError(t, err)
	dto, err := cartSvc.AddItem(ctx, "session-1", product.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, dto.TotalItems)
	assert.True(t, dto.TotalAmount.Equal(decimal.NewFromInt(80)))

	state, err := cartSvc.Snapshot(ctx, "session-1")
	require.NoError(t, err)

	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(ordersRepo, db.Wrap(conn), "USD")
	require.NoError(t, err)
	order, err := ordersSvc.Checkout(ctx, orders.CheckoutInput{Email: "ana@example.com", Lines: state.Lines})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(80)))
	assert.Equal(t, enums.OrderStatusPending, order.Status)

	srv := paypaltest.NewServer()
	t.Cleanup(srv.Close)
	notifier := &recordingNotifier{}
	paymentsSvc, err := NewService(ServiceParams{
		Orders:    ordersRepo,
		Processor: newPayPalClient(t, srv),
		Notifier:  notifier,
		Logger:    logg,
		SiteURL:   "https://shop.example.com",
	})
	require.NoError(t, err)

	initiated, err := paymentsSvc.Initiate(ctx, order.ID)
	require.NoError(t, err)
	unit := srv.Order(initiated.PayPalOrderID)["purchase_units"].([]any)[0].(map[string]any)
	assert.Equal(t, "80.00", unit["amount"].(map[string]any)["value"])

	captured, err := paymentsSvc.Capture(ctx, order.ID, initiated.PayPalOrderID)
	require.NoError(t, err)
	assert.NotEmpty(t, captured.CaptureID)

	stored, err := ordersSvc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.PayPalOrderID)
	assert.Equal(t, initiated.PayPalOrderID, *stored.PayPalOrderID)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 2, stored.Lines[0].Quantity)
	require.Len(t, notifier.events, 1)
	assert.True(t, notifier.events[0].TotalAmount.Equal(decimal.NewFromInt(80)))

	again, err := paymentsSvc.Capture(ctx, order.ID, initiated.PayPalOrderID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.Equal(t, 1, srv.CaptureCalls)
}
