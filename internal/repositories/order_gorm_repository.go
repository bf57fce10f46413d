package repositories

import (
	"context"
	"sort"

	"ocha/internal/apperr"
	"ocha/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

// CreateWithItems inserts the order row first, then its items, in one transaction.
func (r *GORMOrderRepository) CreateWithItems(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		if order.Items[i].ID == "" {
			order.Items[i].ID = uuid.New().String()
		}
		order.Items[i].OrderID = order.ID
		order.Items[i].Position = i
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return translate(err, apperr.CodeOrderNotFound, "order")
		}
		if len(order.Items) == 0 {
			return nil
		}
		if err := tx.Create(&order.Items).Error; err != nil {
			return translate(err, apperr.CodeOrderNotFound, "order items")
		}
		return nil
	})
}

// GetByID loads an order with its store, owner summary and items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Store").
		Preload("User").
		Preload("Items", orderedItems).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, apperr.CodeOrderNotFound, "order "+id)
	}
	return &order, nil
}

// ListByUser returns one page of the user's orders, newest first, with stores attached.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string, filter OrderFilter, page Page) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StoreID != "" {
		q = q.Where("store_id = ?", filter.StoreID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, apperr.CodeOrderNotFound, "orders")
	}
	var orders []models.Order
	err := q.Preload("Store").
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, translate(err, apperr.CodeOrderNotFound, "orders")
	}
	return orders, total, nil
}

// UpdateStatus is a compare-and-set on the status column. When nothing
// matched, it tells a missing order apart from one that moved meanwhile.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.Status) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return translate(res.Error, apperr.CodeOrderNotFound, "order "+id)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return translate(err, apperr.CodeOrderNotFound, "order "+id)
	}
	if n == 0 {
		return apperr.NotFound(apperr.CodeOrderNotFound, "order %s not found", id)
	}
	return apperr.Conflict(apperr.CodeInvalidTransition, "order %s is no longer %s", id, from)
}

// Delete removes the items, then the order, in one transaction.
func (r *GORMOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return translate(err, apperr.CodeOrderNotFound, "order items")
		}
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, apperr.CodeOrderNotFound, "order "+id)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound(apperr.CodeOrderNotFound, "order %s not found", id)
		}
		return nil
	})
}

// ListItems returns the order's items in cart order with their products attached.
// Items whose product has since been deleted keep a nil Product.
func (r *GORMOrderRepository) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := orderedItems(r.db.WithContext(ctx)).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, translate(err, apperr.CodeOrderNotFound, "order items")
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var products []models.Product
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
			return nil, translate(err, apperr.CodeProductNotFound, "products")
		}
	}
	byID := make(map[string]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	return items, nil
}

// CountItems returns how many items reference the order.
func (r *GORMOrderRepository) CountItems(ctx context.Context, orderID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.OrderItem{}).Where("order_id = ?", orderID).Count(&n).Error; err != nil {
		return 0, translate(err, apperr.CodeOrderNotFound, "order items")
	}
	return n, nil
}

type statsRow struct {
	UserID      string
	DisplayName string
	TotalOrders int64
	TotalSpent  decimal.Decimal
}

// StatsByUser groups every order by its owner. Rows come back sorted by
// total spent, highest first.
func (r *GORMOrderRepository) StatsByUser(ctx context.Context) ([]models.UserOrderStats, error) {
	var rows []statsRow
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("orders.user_id AS user_id, COALESCE(users.display_name, '') AS display_name, COUNT(*) AS total_orders, SUM(orders.total_price) AS total_spent").
		Joins("LEFT JOIN users ON users.id = orders.user_id").
		Group("orders.user_id, users.display_name").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, apperr.CodeOrderNotFound, "order stats")
	}

	stats := make([]models.UserOrderStats, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.UserOrderStats{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			TotalOrders: row.TotalOrders,
			TotalSpent:  row.TotalSpent.Round(2),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].TotalSpent.Cmp(stats[j].TotalSpent); c != 0 {
			return c > 0
		}
		return stats[i].UserID < stats[j].UserID
	})
	return stats, nil
}
