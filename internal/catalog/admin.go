package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// AdminService manages catalog content for the back office.
type AdminService interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ReplaceImages(ctx context.Context, productID uuid.UUID, images []ImageInput) (*ProductDTO, error)

	CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error)
	UpdateVariant(ctx context.Context, variantID uuid.UUID, input VariantInput) (*VariantDTO, error)
	DeleteVariant(ctx context.Context, variantID uuid.UUID) error

	CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateGroup(ctx context.Context, input GroupInput) (*GroupDTO, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, input GroupInput) (*GroupDTO, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	CreateDeliveryZone(ctx context.Context, input DeliveryZoneInput) (*DeliveryZoneDTO, error)
	UpdateDeliveryZone(ctx context.Context, id uuid.UUID, input DeliveryZoneInput) (*DeliveryZoneDTO, error)
	DeleteDeliveryZone(ctx context.Context, id uuid.UUID) error
}

// ProductInput is the full set of editable product fields.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Currency    string          `json:"currency,omitempty"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	GroupID     *uuid.UUID      `json:"group_id,omitempty"`
	IsActive    bool            `json:"is_active"`
}

type ImageInput struct {
	URL     string  `json:"url" validate:"required,url"`
	AltText *string `json:"alt_text,omitempty"`
}

type VariantInput struct {
	Name  string           `json:"name" validate:"required,max=100"`
	SKU   *string          `json:"sku,omitempty"`
	Stock int              `json:"stock" validate:"gte=0"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Slug        string  `json:"slug" validate:"required,slug"`
	Description *string `json:"description,omitempty"`
}

type GroupInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Slug        string  `json:"slug" validate:"required,slug"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty" validate:"omitempty,url"`
}

type DeliveryZoneInput struct {
	Name           string          `json:"name" validate:"required,max=100"`
	Fee            decimal.Decimal `json:"fee"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	EstimatedDays  int             `json:"estimated_days" validate:"gte=0"`
	IsActive       bool            `json:"is_active"`
}

type adminService struct {
	repo            *Repository
	dbClient        *db.Client
	defaultCurrency string
}

// NewAdminService constructs the catalog admin service.
func NewAdminService(repo *Repository, dbClient *db.Client, defaultCurrency string) (AdminService, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	currency, err := enums.ParseCurrency(defaultCurrency)
	if err != nil {
		return nil, err
	}
	return &adminService{repo: repo, dbClient: dbClient, defaultCurrency: currency.String()}, nil
}

func validateInput(input any) error {
	if err := validate.Struct(input); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").WithDetails(details)
	}
	return nil
}

func requireNonNegative(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must not be negative").
			WithDetails(map[string]string{field: "gte"})
	}
	return nil
}

func notFoundOr(err error, what string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func (s *adminService) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	filters := input.Filters
	filters.IncludeInactive = true

	rows, err := s.repo.ListProducts(ctx, filters, cursor, pagination.LimitWithBuffer(limit))
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

func (s *adminService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	dto := productToDTO(*row)
	return &dto, nil
}

func (s *adminService) checkProductRefs(ctx context.Context, input ProductInput) error {
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategory(ctx, *input.CategoryID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist").
					WithDetails(map[string]string{"category_id": "unknown"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
	}
	if input.GroupID != nil {
		if _, err := s.repo.FindGroup(ctx, *input.GroupID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeValidation, "product group does not exist").
					WithDetails(map[string]string{"group_id": "unknown"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product group")
		}
	}
	return nil
}

func (s *adminService) prepareProduct(ctx context.Context, input ProductInput) (ProductInput, string, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return input, "", err
	}
	if err := requireNonNegative("price", input.Price); err != nil {
		return input, "", err
	}
	currency := s.defaultCurrency
	if strings.TrimSpace(input.Currency) != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return input, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported currency")
		}
		currency = parsed.String()
	}
	if err := s.checkProductRefs(ctx, input); err != nil {
		return input, "", err
	}
	return input, currency, nil
}

func (s *adminService) CreateProduct(ctx context.Context, input ProductInput) (*ProductDTO, error) {
	input, currency, err := s.prepareProduct(ctx, input)
	if err != nil {
		return nil, err
	}
	product := &models.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		Currency:    currency,
		CategoryID:  input.CategoryID,
		GroupID:     input.GroupID,
		IsActive:    input.IsActive,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *adminService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*ProductDTO, error) {
	input, currency, err := s.prepareProduct(ctx, input)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	product.Name = input.Name
	product.Description = input.Description
	product.Price = input.Price.Round(2)
	product.Stock = input.Stock
	product.Currency = currency
	product.CategoryID = input.CategoryID
	product.GroupID = input.GroupID
	product.IsActive = input.IsActive
	if err := s.repo.SaveProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.GetProduct(ctx, id)
}

func (s *adminService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		deleted, txErr = s.repo.WithTx(tx).DeleteProduct(ctx, id)
		return txErr
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// ReplaceImages stores images in the given order; position follows slice index.
func (s *adminService) ReplaceImages(ctx context.Context, productID uuid.UUID, images []ImageInput) (*ProductDTO, error) {
	for i := range images {
		if err := validateInput(images[i]); err != nil {
			return nil, err
		}
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product")
	}
	rows := make([]models.ProductImage, 0, len(images))
	for i, img := range images {
		rows = append(rows, models.ProductImage{
			URL:      strings.TrimSpace(img.URL),
			AltText:  img.AltText,
			Position: i,
		})
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceImages(ctx, productID, rows)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace product images")
	}
	return s.GetProduct(ctx, productID)
}

func (s *adminService) checkVariant(input VariantInput) (VariantInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return input, err
	}
	if input.Price != nil {
		if err := requireNonNegative("price", *input.Price); err != nil {
			return input, err
		}
	}
	return input, nil
}

func variantPrice(price *decimal.Decimal) decimal.NullDecimal {
	if price == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(price.Round(2))
}

func (s *adminService) CreateVariant(ctx context.Context, productID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	input, err := s.checkVariant(input)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return nil, notFoundOr(err, "product")
	}
	row := &models.ProductVariant{
		ProductID: productID,
		Name:      input.Name,
		SKU:       input.SKU,
		Stock:     input.Stock,
		Price:     variantPrice(input.Price),
	}
	if err := s.repo.CreateVariant(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
	}
	dto := variantToDTO(*row)
	return &dto, nil
}

func (s *adminService) UpdateVariant(ctx context.Context, variantID uuid.UUID, input VariantInput) (*VariantDTO, error) {
	input, err := s.checkVariant(input)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindVariant(ctx, variantID)
	if err != nil {
		return nil, notFoundOr(err, "variant")
	}
	row.Name = input.Name
	row.SKU = input.SKU
	row.Stock = input.Stock
	row.Price = variantPrice(input.Price)
	if err := s.repo.SaveVariant(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant")
	}
	dto := variantToDTO(*row)
	return &dto, nil
}

func (s *adminService) DeleteVariant(ctx context.Context, variantID uuid.UUID) error {
	deleted, err := s.repo.DeleteVariant(ctx, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found")
	}
	return nil
}

func normalizeSlugged(name, slug string) (string, string) {
	return strings.TrimSpace(name), strings.TrimSpace(strings.ToLower(slug))
}

func slugConflict(err error, what string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, what+" slug already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save "+what)
}

func (s *adminService) CreateCategory(ctx context.Context, input CategoryInput) (*CategoryDTO, error) {
	input.Name, input.Slug = normalizeSlugged(input.Name, input.Slug)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row := &models.Category{Name: input.Name, Slug: input.Slug, Description: input.Description}
	if err := s.repo.CreateCategory(ctx, row); err != nil {
		return nil, slugConflict(err, "category")
	}
	dto := categoryToDTO(*row)
	return &dto, nil
}

func (s *adminService) UpdateCategory(ctx context.Context, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	input.Name, input.Slug = normalizeSlugged(input.Name, input.Slug)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row, err := s.repo.FindCategory(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category")
	}
	row.Name, row.Slug, row.Description = input.Name, input.Slug, input.Description
	if err := s.repo.SaveCategory(ctx, row); err != nil {
		return nil, slugConflict(err, "category")
	}
	dto := categoryToDTO(*row)
	return &dto, nil
}

func (s *adminService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		deleted, txErr = s.repo.WithTx(tx).DeleteCategory(ctx, id)
		return txErr
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

func (s *adminService) CreateGroup(ctx context.Context, input GroupInput) (*GroupDTO, error) {
	input.Name, input.Slug = normalizeSlugged(input.Name, input.Slug)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row := &models.ProductGroup{Name: input.Name, Slug: input.Slug, Description: input.Description, ImageURL: input.ImageURL}
	if err := s.repo.CreateGroup(ctx, row); err != nil {
		return nil, slugConflict(err, "product group")
	}
	dto := groupToDTO(*row)
	return &dto, nil
}

func (s *adminService) UpdateGroup(ctx context.Context, id uuid.UUID, input GroupInput) (*GroupDTO, error) {
	input.Name, input.Slug = normalizeSlugged(input.Name, input.Slug)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	row, err := s.repo.FindGroup(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product group")
	}
	row.Name, row.Slug, row.Description, row.ImageURL = input.Name, input.Slug, input.Description, input.ImageURL
	if err := s.repo.SaveGroup(ctx, row); err != nil {
		return nil, slugConflict(err, "product group")
	}
	dto := groupToDTO(*row)
	return &dto, nil
}

func (s *adminService) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		deleted, txErr = s.repo.WithTx(tx).DeleteGroup(ctx, id)
		return txErr
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product group")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product group not found")
	}
	return nil
}

func (s *adminService) checkZone(input DeliveryZoneInput) (DeliveryZoneInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return input, err
	}
	if err := requireNonNegative("fee", input.Fee); err != nil {
		return input, err
	}
	if err := requireNonNegative("min_order_amount", input.MinOrderAmount); err != nil {
		return input, err
	}
	return input, nil
}

func (s *adminService) CreateDeliveryZone(ctx context.Context, input DeliveryZoneInput) (*DeliveryZoneDTO, error) {
	input, err := s.checkZone(input)
	if err != nil {
		return nil, err
	}
	row := &models.DeliveryZone{
		Name:           input.Name,
		Fee:            input.Fee.Round(2),
		MinOrderAmount: input.MinOrderAmount.Round(2),
		EstimatedDays:  input.EstimatedDays,
		IsActive:       input.IsActive,
	}
	if err := s.repo.CreateDeliveryZone(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery zone")
	}
	dto := deliveryZoneToDTO(*row)
	return &dto, nil
}

func (s *adminService) UpdateDeliveryZone(ctx context.Context, id uuid.UUID, input DeliveryZoneInput) (*DeliveryZoneDTO, error) {
	input, err := s.checkZone(input)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.FindDeliveryZone(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "delivery zone")
	}
	row.Name = input.Name
	row.Fee = input.Fee.Round(2)
	row.MinOrderAmount = input.MinOrderAmount.Round(2)
	row.EstimatedDays = input.EstimatedDays
	row.IsActive = input.IsActive
	if err := s.repo.SaveDeliveryZone(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery zone")
	}
	dto := deliveryZoneToDTO(*row)
	return &dto, nil
}

func (s *adminService) DeleteDeliveryZone(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.DeleteDeliveryZone(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete delivery zone")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "delivery zone not found")
	}
	return nil
}
