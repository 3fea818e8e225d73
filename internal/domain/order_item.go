package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// OrderItem is one product line of an order.
type OrderItem struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"order_id"`
	ProductID         string          `json:"product_id,omitempty"`
	VariantID         string          `json:"variant_id,omitempty"`
	Title             string          `json:"title"`
	SKU               string          `json:"sku,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Quantity          int             `json:"quantity"`
	FulfilledQuantity int             `json:"fulfilled_quantity"`
	ShippedQuantity   int             `json:"shipped_quantity"`
	ReturnedQuantity  int             `json:"returned_quantity"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderItemPatch carries a partial line update.
type OrderItemPatch struct {
	Quantity          *int
	FulfilledQuantity *int
	ShippedQuantity   *int
	ReturnedQuantity  *int
	UnitPrice         *decimal.Decimal
	Metadata          map[string]any
}

func (p OrderItemPatch) apply(i *OrderItem) {
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	if p.FulfilledQuantity != nil {
		i.FulfilledQuantity = *p.FulfilledQuantity
	}
	if p.ShippedQuantity != nil {
		i.ShippedQuantity = *p.ShippedQuantity
	}
	if p.ReturnedQuantity != nil {
		i.ReturnedQuantity = *p.ReturnedQuantity
	}
	if p.UnitPrice != nil {
		i.UnitPrice = *p.UnitPrice
	}
	if p.Metadata != nil {
		i.Metadata = p.Metadata
	}
}

// Validate checks the price and quantity invariants: the price fits the money
// scale, every count is non-negative and the fulfilment counters never
// exceed the ordered quantity.
func (i OrderItem) Validate() error {
	if i.UnitPrice.IsNegative() {
		return apperrors.ValidationFailed("unit_price", "must not be negative")
	}
	if err := checkMoneyScale("unit_price", i.UnitPrice); err != nil {
		return err
	}
	if i.Quantity < 0 {
		return apperrors.ValidationFailed("quantity", "must not be negative")
	}
	counters := []struct {
		field string
		n     int
	}{
		{"fulfilled_quantity", i.FulfilledQuantity},
		{"shipped_quantity", i.ShippedQuantity},
		{"returned_quantity", i.ReturnedQuantity},
	}
	for _, c := range counters {
		if c.n < 0 {
			return apperrors.ValidationFailed(c.field, "must not be negative")
		}
		if c.n > i.Quantity {
			return apperrors.ValidationFailed(c.field, "must not exceed quantity")
		}
	}
	return nil
}

// UnshippedQuantity is the ordered quantity not yet shipped, floored at zero.
func (i OrderItem) UnshippedQuantity() int {
	return max(i.Quantity-i.ShippedQuantity, 0)
}
