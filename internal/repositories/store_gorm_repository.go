package repositories

import (
	"context"
	"sort"
	"strings"

	"ocha/internal/apperr"
	"ocha/internal/geo"
	"ocha/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMStoreRepository is a GORM implementation of StoreRepository.
type GORMStoreRepository struct {
	db *gorm.DB
}

// NewGORMStoreRepository creates a new instance of GORMStoreRepository.
func NewGORMStoreRepository(db *gorm.DB) *GORMStoreRepository {
	return &GORMStoreRepository{db: db}
}

// List returns one page of stores ordered by name.
func (r *GORMStoreRepository) List(ctx context.Context, page Page) ([]models.Store, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err, apperr.CodeStoreNotFound, "stores")
	}
	var stores []models.Store
	if err := r.db.WithContext(ctx).Order("name").Offset(page.Offset()).Limit(page.Limit).Find(&stores).Error; err != nil {
		return nil, 0, translate(err, apperr.CodeStoreNotFound, "stores")
	}
	return stores, total, nil
}

// Nearby narrows the candidates with the cell ranges covering the search cap,
// then keeps only the stores whose exact distance is within the radius.
func (r *GORMStoreRepository) Nearby(ctx context.Context, center geo.Point, radiusMeters float64, page Page) ([]models.NearbyStore, int64, error) {
	ranges := geo.Covering(center, radiusMeters)
	if len(ranges) == 0 {
		return []models.NearbyStore{}, 0, nil
	}

	conds := make([]string, 0, len(ranges))
	args := make([]any, 0, 2*len(ranges))
	for _, rg := range ranges {
		conds = append(conds, "s2_cell BETWEEN ? AND ?")
		args = append(args, rg.Min, rg.Max)
	}

	var candidates []models.Store
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Find(&candidates).Error
	if err != nil {
		return nil, 0, translate(err, apperr.CodeStoreNotFound, "stores")
	}

	matches := make([]models.NearbyStore, 0, len(candidates))
	for _, s := range candidates {
		d := geo.DistanceMeters(center, s.Location.Geo())
		if d <= radiusMeters {
			matches = append(matches, models.NearbyStore{Store: s, DistanceMeters: d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].DistanceMeters != matches[j].DistanceMeters {
			return matches[i].DistanceMeters < matches[j].DistanceMeters
		}
		return matches[i].ID < matches[j].ID
	})
	return slicePage(matches, page), int64(len(matches)), nil
}

// GetByID retrieves a single store by its ID.
func (r *GORMStoreRepository) GetByID(ctx context.Context, id string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, translate(err, apperr.CodeStoreNotFound, "store "+id)
	}
	return &store, nil
}

// Exists reports whether a store with the given ID is present.
func (r *GORMStoreRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Store{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, translate(err, apperr.CodeStoreNotFound, "store "+id)
	}
	return n > 0, nil
}

// Create creates a new store in the database.
func (r *GORMStoreRepository) Create(ctx context.Context, store *models.Store) error {
	if store.ID == "" {
		store.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(store).Error; err != nil {
		return translate(err, apperr.CodeStoreNotFound, "store")
	}
	return nil
}

// Update writes every column of an existing store. The save hook refreshes
// the slug and the cell key.
func (r *GORMStoreRepository) Update(ctx context.Context, store *models.Store) error {
	res := r.db.WithContext(ctx).Model(store).Select("*").Omit("created_at").Updates(store)
	if res.Error != nil {
		return translate(res.Error, apperr.CodeStoreNotFound, "store")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(apperr.CodeStoreNotFound, "store %s not found", store.ID)
	}
	return nil
}

// Delete deletes a store by its ID.
func (r *GORMStoreRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Store{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, apperr.CodeStoreNotFound, "store "+id)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(apperr.CodeStoreNotFound, "store %s not found", id)
	}
	return nil
}
