package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a drink or snack in the catalog.
type Product struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Slug          string          `json:"slug" gorm:"uniqueIndex;type:varchar(120)" validate:"required,slug,max=120"`
	Name          string          `json:"name" validate:"required,min=2,max=100"`
	Category      string          `json:"category" gorm:"index" validate:"required,max=60"`
	Description   string          `json:"description" validate:"required,max=1000"`
	BasePrice     decimal.Decimal `json:"base_price" gorm:"type:decimal(10,2);not null" validate:"gte=0"`
	IsActive      bool            `json:"is_active" gorm:"index"`
	Image         string          `json:"image" validate:"required"`
	Sizes         SizeSet         `json:"sizes" gorm:"type:text" validate:"min=1,dive,size"`
	SizeSurcharge SurchargeTable  `json:"size_surcharge" gorm:"type:text" validate:"dive,keys,size,endkeys,gte=0"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ApplyDefaults fills the size set and surcharge table when they were left out.
func (p *Product) ApplyDefaults() {
	if len(p.Sizes) == 0 {
		p.Sizes = SizeSet{SizeSmall, SizeMedium, SizeLarge}
	}
	if p.SizeSurcharge == nil {
		p.SizeSurcharge = DefaultSurcharges()
	}
}
