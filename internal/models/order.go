package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one priced cart line. The snapshot fields are copied from the
// product when the order is placed and never change afterwards.
type OrderItem struct {
	ID                  string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID             string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID           string          `json:"product_id" gorm:"type:varchar(36);index;not null"`
	Position            int             `json:"-" gorm:"not null"`
	Product             *Product        `json:"product,omitempty" gorm:"-"`
	ProductNameSnapshot string          `json:"product_name" gorm:"not null"`
	Size                Size            `json:"size" gorm:"type:varchar(1);not null"`
	Quantity            int             `json:"quantity" gorm:"not null"`
	BasePriceSnapshot   decimal.Decimal `json:"base_price" gorm:"type:decimal(10,2);not null"`
	ExtraSnapshot       decimal.Decimal `json:"extra" gorm:"type:decimal(10,2);not null"`
	FinalPrice          decimal.Decimal `json:"final_price" gorm:"type:decimal(10,2);not null"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Order is a pickup order placed by a user at a store.
type Order struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	User       *UserSummary    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	StoreID    string          `json:"store_id" gorm:"type:varchar(36);index;not null"`
	Store      *Store          `json:"store,omitempty" gorm:"foreignKey:StoreID"`
	Status     Status          `json:"status" gorm:"type:varchar(16);index;not null"`
	Pickup     time.Time       `json:"pickup" gorm:"not null"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(10,2);not null"`
	Items      []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// UserOrderStats is one row of the per-user rollup.
type UserOrderStats struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"user"`
	TotalOrders int64           `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
}
