package repositories

import (
	"context"

	"ocha/internal/models"
)

// OrderFilter narrows a user's order listing. Zero values mean "any".
type OrderFilter struct {
	Status  models.Status
	StoreID string
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// CreateWithItems inserts the order and all of its items atomically.
	CreateWithItems(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string, filter OrderFilter, page Page) ([]models.Order, int64, error)
	// UpdateStatus moves the order from one status to another only if it is
	// still in the expected one.
	UpdateStatus(ctx context.Context, id string, from, to models.Status) error
	// Delete removes the order and its items atomically.
	Delete(ctx context.Context, id string) error
	ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	CountItems(ctx context.Context, orderID string) (int64, error)
	StatsByUser(ctx context.Context) ([]models.UserOrderStats, error)
}
