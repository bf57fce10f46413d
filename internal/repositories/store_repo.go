package repositories

import (
	"context"

	"ocha/internal/geo"
	"ocha/internal/models"
)

// StoreRepository defines the interface for store data access.
type StoreRepository interface {
	List(ctx context.Context, page Page) ([]models.Store, int64, error)
	// Nearby returns active stores within radiusMeters of center, closest first.
	Nearby(ctx context.Context, center geo.Point, radiusMeters float64, page Page) ([]models.NearbyStore, int64, error)
	GetByID(ctx context.Context, id string) (*models.Store, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, store *models.Store) error
	Update(ctx context.Context, store *models.Store) error
	Delete(ctx context.Context, id string) error
}
