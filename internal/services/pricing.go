package services

import (
	"ocha/internal/apperr"
	"ocha/internal/models"

	"github.com/shopspring/decimal"
)

// LinePrice is the priced breakdown of one cart line.
type LinePrice struct {
	Base  decimal.Decimal
	Extra decimal.Decimal
	Final decimal.Decimal
}

// PriceLine prices quantity units of product in size against the product's
// current price: round2((base + surcharge[size]) × quantity). A size missing
// from the surcharge table costs nothing extra.
func PriceLine(product *models.Product, size models.Size, quantity int) (LinePrice, error) {
	if !size.Valid() {
		return LinePrice{}, apperr.Validation(apperr.CodeInvalidSize, "size %q is not one of S, M, L", size)
	}
	if len(product.Sizes) > 0 && !product.Sizes.Contains(size) {
		return LinePrice{}, apperr.Validation(apperr.CodeInvalidSize, "%s is not offered in size %s", product.Name, size)
	}
	if quantity < 1 {
		return LinePrice{}, apperr.Validation(apperr.CodeInvalidQuantity, "quantity must be a positive integer, got %d", quantity)
	}

	extra := product.SizeSurcharge.For(size)
	unit := product.BasePrice.Add(extra)
	return LinePrice{
		Base:  product.BasePrice,
		Extra: extra,
		Final: unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
	}, nil
}
