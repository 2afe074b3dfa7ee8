package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service is the read side of the catalog used by the storefront and the cart.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListGroups(ctx context.Context) ([]GroupDTO, error)
	GetGroup(ctx context.Context, slug string) (*GroupDTO, error)
	ListDeliveryZones(ctx context.Context, activeOnly bool) ([]DeliveryZoneDTO, error)
	ResolvePurchasable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Purchasable, error)
}

// ListProductsInput combines filters and cursor pagination.
type ListProductsInput struct {
	Filters    ProductFilters
	Pagination pagination.Params
}

type service struct {
	repo *Repository
}

// NewService constructs the catalog read service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Pagination.Limit)

	filters := input.Filters
	filters.IncludeInactive = false
	rows, err := s.repo.ListProducts(ctx, filters, cursor, pagination.LimitWithBuffer(input.Pagination.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	rows, next := pagination.Trim(rows, limit, productCursor)
	result := &ProductListResult{Products: make([]ProductDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		result.Products = append(result.Products, productToDTO(row))
	}
	return result, nil
}

// GetProduct returns an active product; inactive ones are reported as not found.
func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := productToDTO(*row)
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryToDTO(row))
	}
	return out, nil
}

func (s *service) ListGroups(ctx context.Context) ([]GroupDTO, error) {
	rows, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product groups")
	}
	out := make([]GroupDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, groupToDTO(row))
	}
	return out, nil
}

func (s *service) GetGroup(ctx context.Context, slug string) (*GroupDTO, error) {
	slug = strings.TrimSpace(strings.ToLower(slug))
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	row, err := s.repo.FindGroupBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product group")
	}
	dto := groupToDTO(*row)
	if dto.Products == nil {
		dto.Products = []ProductDTO{}
	}
	return &dto, nil
}

func (s *service) ListDeliveryZones(ctx context.Context, activeOnly bool) ([]DeliveryZoneDTO, error) {
	rows, err := s.repo.ListDeliveryZones(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list delivery zones")
	}
	out := make([]DeliveryZoneDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, deliveryZoneToDTO(row))
	}
	return out, nil
}

// ResolvePurchasable loads the product (and variant when given) and captures the
// snapshot a cart line needs.
func (s *service) ResolvePurchasable(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (Purchasable, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if variantID == nil || *variantID == uuid.Nil {
		return Resolve(product.Snapshot(), nil), nil
	}
	variant, ok := product.Variant(*variantID)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	snap := variant.Snapshot()
	return Resolve(product.Snapshot(), &snap), nil
}
