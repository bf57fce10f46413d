package repositories

import (
	"context"

	"ocha/internal/apperr"
	"ocha/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List returns one page of products, newest first, and the total row count.
func (r *GORMProductRepository) List(ctx context.Context, activeOnly bool, page Page) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, apperr.CodeProductNotFound, "products")
	}
	var products []models.Product
	if err := q.Order("created_at DESC, id").Offset(page.Offset()).Limit(page.Limit).Find(&products).Error; err != nil {
		return nil, 0, translate(err, apperr.CodeProductNotFound, "products")
	}
	return products, total, nil
}

// ListActive returns every product currently on sale, by name.
func (r *GORMProductRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&products).Error; err != nil {
		return nil, translate(err, apperr.CodeProductNotFound, "products")
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, apperr.CodeProductNotFound, "product "+id)
	}
	return &product, nil
}

// GetByIDs loads the given products in one query. Unknown ids are absent from the map.
func (r *GORMProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error) {
	out := make(map[string]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, translate(err, apperr.CodeProductNotFound, "products")
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return translate(err, apperr.CodeProductNotFound, "product")
	}
	return nil
}

// Update writes every column of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(product).Select("*").Omit("created_at").Updates(product)
	if res.Error != nil {
		return translate(res.Error, apperr.CodeProductNotFound, "product")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(apperr.CodeProductNotFound, "product %s not found", product.ID)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, apperr.CodeProductNotFound, "product "+id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(apperr.CodeProductNotFound, "product %s not found", id)
	}
	return nil
}
