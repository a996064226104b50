package models

import "github.com/shopspring/decimal"

// Component is one electrical component of the switchboard catalog.
type Component struct {
	ID          string              `json:"id" validate:"required,max=100"`
	Name        string              `json:"name" validate:"required,max=255"`
	Fields      int                 `json:"fields" validate:"gte=0"` // DIN rail modules taken by the component
	Description string              `json:"description"`
	Price       decimal.NullDecimal `json:"price"` // NULL when the catalog has no price
	Image       string              `json:"image" validate:"max=500"`
	CreatedAt   string              `json:"created_at,omitempty"` // RFC3339, filled from the database
	UpdatedAt   string              `json:"updated_at,omitempty"` // RFC3339, filled from the database
}

// PriceFloat returns the price as float64, 0 when unset.
func (c *Component) PriceFloat() float64 {
	if !c.Price.Valid {
		return 0
	}
	f, _ := c.Price.Decimal.Float64()
	return f
}

// NewPrice builds a valid NullDecimal rounded to the DECIMAL(10,2) column scale.
func NewPrice(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v).Round(2))
}
