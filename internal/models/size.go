package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Size is a drink size token.
type Size string

const (
	SizeSmall  Size = "S"
	SizeMedium Size = "M"
	SizeLarge  Size = "L"
)

// AllSizes lists the recognized sizes in display order.
var AllSizes = []Size{SizeSmall, SizeMedium, SizeLarge}

// Valid reports whether s is one of the recognized tokens.
func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// SizeSet is the set of sizes a product is offered in, stored as a JSON column.
type SizeSet []Size

// Contains reports whether s is part of the set.
func (ss SizeSet) Contains(s Size) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (ss SizeSet) Value() (driver.Value, error) {
	if ss == nil {
		ss = SizeSet{}
	}
	b, err := json.Marshal([]Size(ss))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (ss *SizeSet) Scan(src any) error {
	return scanJSON(src, (*[]Size)(ss))
}

// SurchargeTable maps a size to the amount added to the base price.
type SurchargeTable map[Size]decimal.Decimal

// DefaultSurcharges is applied to products created without an explicit table.
func DefaultSurcharges() SurchargeTable {
	return SurchargeTable{
		SizeSmall:  decimal.Zero,
		SizeMedium: decimal.NewFromInt(2),
		SizeLarge:  decimal.NewFromInt(3),
	}
}

// For returns the surcharge for s; a missing entry costs nothing.
func (t SurchargeTable) For(s Size) decimal.Decimal {
	if v, ok := t[s]; ok {
		return v
	}
	return decimal.Zero
}

func (t SurchargeTable) Value() (driver.Value, error) {
	if t == nil {
		t = SurchargeTable{}
	}
	b, err := json.Marshal(map[Size]decimal.Decimal(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *SurchargeTable) Scan(src any) error {
	return scanJSON(src, (*map[Size]decimal.Decimal)(t))
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
