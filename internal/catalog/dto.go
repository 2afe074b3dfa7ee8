package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ProductDTO is the storefront representation of a product with its images and variants.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Currency    string          `json:"currency"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty"`
	GroupID     *uuid.UUID      `json:"group_id,omitempty"`
	IsActive    bool            `json:"is_active"`
	Category    *CategoryDTO    `json:"category,omitempty"`
	Images      []ImageDTO      `json:"images"`
	Variants    []VariantDTO    `json:"variants"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ImageDTO is a product image in display order.
type ImageDTO struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	AltText  *string   `json:"alt_text,omitempty"`
	Position int       `json:"position"`
}

// VariantDTO exposes a variant and its optional price override.
type VariantDTO struct {
	ID        uuid.UUID        `json:"id"`
	ProductID uuid.UUID        `json:"product_id"`
	Name      string           `json:"name"`
	SKU       *string          `json:"sku,omitempty"`
	Stock     int              `json:"stock"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description,omitempty"`
}

// GroupDTO is a product group; Products is only populated on detail reads.
type GroupDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Description *string      `json:"description,omitempty"`
	ImageURL    *string      `json:"image_url,omitempty"`
	Products    []ProductDTO `json:"products,omitempty"`
}

type DeliveryZoneDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Fee            decimal.Decimal `json:"fee"`
	MinOrderAmount decimal.Decimal `json:"min_order_amount"`
	EstimatedDays  int             `json:"estimated_days"`
	IsActive       bool            `json:"is_active"`
}

// ProductListResult is a cursor-paginated page of products.
type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FirstImageURL returns the lowest-position image, if any.
func (p ProductDTO) FirstImageURL() *string {
	if len(p.Images) == 0 {
		return nil
	}
	url := p.Images[0].URL
	return &url
}

// Variant returns the variant with the given id.
func (p ProductDTO) Variant(id uuid.UUID) (VariantDTO, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return VariantDTO{}, false
}

func productCursor(m models.Product) pagination.Cursor {
	return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

func productToDTO(m models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Stock:       m.Stock,
		Currency:    m.Currency,
		CategoryID:  m.CategoryID,
		GroupID:     m.GroupID,
		IsActive:    m.IsActive,
		Images:      make([]ImageDTO, 0, len(m.Images)),
		Variants:    make([]VariantDTO, 0, len(m.Variants)),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.Category != nil {
		category := categoryToDTO(*m.Category)
		dto.Category = &category
	}
	for _, img := range m.Images {
		dto.Images = append(dto.Images, imageToDTO(img))
	}
	for _, v := range m.Variants {
		dto.Variants = append(dto.Variants, variantToDTO(v))
	}
	return dto
}

func imageToDTO(m models.ProductImage) ImageDTO {
	return ImageDTO{ID: m.ID, URL: m.URL, AltText: m.AltText, Position: m.Position}
}

func variantToDTO(m models.ProductVariant) VariantDTO {
	dto := VariantDTO{
		ID:        m.ID,
		ProductID: m.ProductID,
		Name:      m.Name,
		SKU:       m.SKU,
		Stock:     m.Stock,
	}
	if m.Price.Valid {
		price := m.Price.Decimal
		dto.Price = &price
	}
	return dto
}

func categoryToDTO(m models.Category) CategoryDTO {
	return CategoryDTO{ID: m.ID, Name: m.Name, Slug: m.Slug, Description: m.Description}
}

func groupToDTO(m models.ProductGroup) GroupDTO {
	dto := GroupDTO{
		ID:          m.ID,
		Name:        m.Name,
		Slug:        m.Slug,
		Description: m.Description,
		ImageURL:    m.ImageURL,
	}
	for _, p := range m.Products {
		dto.Products = append(dto.Products, productToDTO(p))
	}
	return dto
}

func deliveryZoneToDTO(m models.DeliveryZone) DeliveryZoneDTO {
	return DeliveryZoneDTO{
		ID:             m.ID,
		Name:           m.Name,
		Fee:            m.Fee,
		MinOrderAmount: m.MinOrderAmount,
		EstimatedDays:  m.EstimatedDays,
		IsActive:       m.IsActive,
	}
}
