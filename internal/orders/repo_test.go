package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type failingLinesRepo struct {
	Repository
}

func (f failingLinesRepo) WithTx(tx *gorm.DB) Repository {
	return failingLinesRepo{Repository: f.Repository.WithTx(tx)}
}

func (failingLinesRepo) CreateOrderLines(context.Context, []models.OrderLine) error {
	return errors.New("order_lines insert failed")
}

func TestCheckoutPersistsOrderAndLines(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), "USD")
	require.NoError(t, err)

	order, err := svc.Checkout(context.Background(), CheckoutInput{
		Email: "ana@example.com",
		Lines: []cart.Line{cartLine("40.00", 2)},
	})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(80)))

	stored, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 2, stored.Lines[0].Quantity)
	assert.True(t, stored.Lines[0].UnitPrice.Equal(decimal.NewFromInt(40)))
}

func TestCheckoutRollsBackOrderWhenLinesFail(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(failingLinesRepo{Repository: NewRepository(conn)}, db.Wrap(conn), "USD")
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), CheckoutInput{
		Email: "ana@example.com",
		Lines: []cart.Line{cartLine("40.00", 2)},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	var count int64
	require.NoError(t, conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func seedOrder(t *testing.T, conn *gorm.DB, email string, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		CustomerEmail: email,
		TotalAmount:   decimal.NewFromInt(10),
		Currency:      "USD",
		Status:        status,
		CreatedAt:     createdAt,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestRepositoryMarkCompletedIsConditional(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	order := seedOrder(t, conn, "a@example.com", enums.OrderStatusPending, time.Now().UTC())

	changed, err := repo.MarkCompleted(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkCompleted(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, repo.UpdatePayPalOrderID(context.Background(), order.ID, "PAYPAL-1"))
	reloaded, err := repo.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.PayPalOrderID)
	assert.Equal(t, "PAYPAL-1", *reloaded.PayPalOrderID)
}

func TestListOrdersPaginationAndFilters(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), "USD")
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	newest := seedOrder(t, conn, "a@example.com", enums.OrderStatusPending, base.Add(3*time.Hour))
	seedOrder(t, conn, "b@example.com", enums.OrderStatusShipped, base.Add(2*time.Hour))
	oldest := seedOrder(t, conn, "A@example.com", enums.OrderStatusPending, base.Add(time.Hour))

	page, err := svc.List(context.Background(), ListFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.List(context.Background(), ListFilters{}, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, oldest.ID, next.Orders[0].ID)

	pending := enums.OrderStatusPending
	filtered, err := svc.List(context.Background(), ListFilters{Status: &pending, Email: "a@example.com"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, filtered.Orders, 2)

	bogus := enums.OrderStatus("bogus")
	_, err = svc.List(context.Background(), ListFilters{Status: &bogus}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetMissingOrder(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.Wrap(conn), "USD")
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
