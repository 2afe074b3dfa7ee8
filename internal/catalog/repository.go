package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ProductFilters narrows the public product listing.
type ProductFilters struct {
	CategoryID *uuid.UUID
	GroupID    *uuid.UUID
	Query      string
	// IncludeInactive is only honoured for admin listings.
	IncludeInactive bool
}

// Repository reads and writes catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func withProductAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

// ListProducts returns up to limit rows after the cursor, newest first.
func (r *Repository) ListProducts(ctx context.Context, filters ProductFilters, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	q := withProductAssociations(r.db.WithContext(ctx).Model(&models.Product{}))
	if !filters.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if filters.CategoryID != nil {
		q = q.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.GroupID != nil {
		q = q.Where("group_id = ?", *filters.GroupID)
	}
	if term := strings.TrimSpace(filters.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(name) LIKE ?", like)
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// FindProduct loads one product with category, images and variants.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := withProductAssociations(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category", "Group", "Images", "Variants").Create(product).Error
}

func (r *Repository) SaveProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category", "Group", "Images", "Variants").Save(product).Error
}

// DeleteProduct removes the product together with its images and variants.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error; err != nil {
		return false, err
	}
	res := tx.Where("id = ?", id).Delete(&models.Product{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) SaveCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// DeleteCategory detaches products from the category before removing it.
func (r *Repository) DeleteCategory(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
		return false, err
	}
	res := tx.Where("id = ?", id).Delete(&models.Category{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) ListGroups(ctx context.Context) ([]models.ProductGroup, error) {
	var rows []models.ProductGroup
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// FindGroupBySlug loads a group with its active products.
func (r *Repository) FindGroupBySlug(ctx context.Context, slug string) (*models.ProductGroup, error) {
	var row models.ProductGroup
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return withProductAssociations(db.Where("is_active = ?", true).Order("created_at DESC"))
		}).
		First(&row, "slug = ?", slug).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.ProductGroup, error) {
	var row models.ProductGroup
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateGroup(ctx context.Context, group *models.ProductGroup) error {
	return r.db.WithContext(ctx).Omit("Products").Create(group).Error
}

func (r *Repository) SaveGroup(ctx context.Context, group *models.ProductGroup) error {
	return r.db.WithContext(ctx).Omit("Products").Save(group).Error
}

// DeleteGroup detaches products from the group before removing it.
func (r *Repository) DeleteGroup(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.Product{}).Where("group_id = ?", id).Update("group_id", nil).Error; err != nil {
		return false, err
	}
	res := tx.Where("id = ?", id).Delete(&models.ProductGroup{})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) FindVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	var row models.ProductVariant
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

func (r *Repository) SaveVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Save(variant).Error
}

func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProductVariant{})
	return res.RowsAffected > 0, res.Error
}

// ReplaceImages swaps the product's images for the provided ordered set.
func (r *Repository) ReplaceImages(ctx context.Context, productID uuid.UUID, images []models.ProductImage) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}
	for i := range images {
		images[i].ProductID = productID
	}
	return tx.Create(&images).Error
}

// ListDeliveryZones returns zones ordered by fee; activeOnly hides disabled zones.
func (r *Repository) ListDeliveryZones(ctx context.Context, activeOnly bool) ([]models.DeliveryZone, error) {
	q := r.db.WithContext(ctx).Model(&models.DeliveryZone{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.DeliveryZone
	err := q.Order("fee ASC").Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindDeliveryZone(ctx context.Context, id uuid.UUID) (*models.DeliveryZone, error) {
	var row models.DeliveryZone
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateDeliveryZone(ctx context.Context, zone *models.DeliveryZone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

func (r *Repository) SaveDeliveryZone(ctx context.Context, zone *models.DeliveryZone) error {
	return r.db.WithContext(ctx).Save(zone).Error
}

func (r *Repository) DeleteDeliveryZone(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.DeliveryZone{})
	return res.RowsAffected > 0, res.Error
}
