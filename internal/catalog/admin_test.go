package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestAdmin(t *testing.T) AdminService {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewAdminService(NewRepository(conn), db.Wrap(conn), "usd")
	require.NoError(t, err)
	return svc
}

func TestNewAdminServiceRejectsUnknownCurrency(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewAdminService(NewRepository(conn), db.Wrap(conn), "XYZ")
	require.Error(t, err)
}

func TestAdminProductLifecycle(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, CategoryInput{Name: "Kitchen", Slug: "Kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "kitchen", category.Slug)

	product, err := svc.CreateProduct(ctx, ProductInput{
		Name:       "  Kettle ",
		Price:      decimal.RequireFromString("39.999"),
		Stock:      3,
		CategoryID: &category.ID,
		IsActive:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kettle", product.Name)
	assert.Equal(t, "USD", product.Currency)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(40)))

	updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{
		Name:     "Kettle",
		Price:    decimal.NewFromInt(35),
		Stock:    0,
		Currency: "eur",
		IsActive: false,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "EUR", updated.Currency)
	assert.Nil(t, updated.CategoryID)

	withImages, err := svc.ReplaceImages(ctx, product.ID, []ImageInput{
		{URL: "https://cdn.example.com/1.jpg"},
		{URL: "https://cdn.example.com/2.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, withImages.Images, 2)
	assert.Equal(t, 1, withImages.Images[1].Position)

	price := decimal.NewFromInt(45)
	variant, err := svc.CreateVariant(ctx, product.ID, VariantInput{Name: "Steel", Stock: 2, Price: &price})
	require.NoError(t, err)
	require.NotNil(t, variant.Price)

	variant, err = svc.UpdateVariant(ctx, variant.ID, VariantInput{Name: "Steel", Stock: 1})
	require.NoError(t, err)
	assert.Nil(t, variant.Price)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	_, err = svc.GetProduct(ctx, product.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(svc.DeleteProduct(ctx, product.ID), pkgerrors.CodeNotFound))
}

func TestAdminCreateProductValidation(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Name: "", Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Cheap", Price: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Orphan", Price: decimal.NewFromInt(1), GroupID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Yen", Price: decimal.NewFromInt(1), Currency: "JPY"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAdminSlugRules(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()

	_, err := svc.CreateGroup(ctx, GroupInput{Name: "Bad", Slug: "not a slug"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateGroup(ctx, GroupInput{Name: "Summer", Slug: "summer-2026"})
	require.NoError(t, err)
	_, err = svc.CreateGroup(ctx, GroupInput{Name: "Summer again", Slug: "summer-2026"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestAdminDeleteGroupDetachesProducts(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewAdminService(NewRepository(conn), db.Wrap(conn), "USD")
	require.NoError(t, err)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, GroupInput{Name: "Sale", Slug: "sale"})
	require.NoError(t, err)
	product, err := svc.CreateProduct(ctx, ProductInput{Name: "Bag", Price: decimal.NewFromInt(10), GroupID: &group.ID, IsActive: true})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteGroup(ctx, group.ID))

	var reloaded models.Product
	require.NoError(t, conn.First(&reloaded, "id = ?", product.ID).Error)
	assert.Nil(t, reloaded.GroupID)
	assert.True(t, pkgerrors.IsCode(svc.DeleteGroup(ctx, group.ID), pkgerrors.CodeNotFound))
}

func TestAdminDeliveryZones(t *testing.T) {
	svc := newTestAdmin(t)
	ctx := context.Background()

	zone, err := svc.CreateDeliveryZone(ctx, DeliveryZoneInput{
		Name:           "Downtown",
		Fee:            decimal.RequireFromString("4.50"),
		MinOrderAmount: decimal.NewFromInt(25),
		EstimatedDays:  1,
		IsActive:       true,
	})
	require.NoError(t, err)

	_, err = svc.UpdateDeliveryZone(ctx, zone.ID, DeliveryZoneInput{Name: "Downtown", Fee: decimal.NewFromInt(-2)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	updated, err := svc.UpdateDeliveryZone(ctx, zone.ID, DeliveryZoneInput{Name: "Downtown", Fee: decimal.NewFromInt(6), EstimatedDays: 2})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.NoError(t, svc.DeleteDeliveryZone(ctx, zone.ID))
	assert.True(t, pkgerrors.IsCode(svc.DeleteDeliveryZone(ctx, zone.ID), pkgerrors.CodeNotFound))
}
