package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// DefaultCurrency is used when an order is created without one.
const DefaultCurrency = "CNY"

// Order is a customer order. Subtotal and Total are derived from the items
// and adjustments by Recalculate and are never set directly.
type Order struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CustomerID      string              `json:"customer_id"`
	Email           string              `json:"email"`
	Status          OrderStatus         `json:"status"`
	Currency        string              `json:"currency"`
	Items           []OrderItem         `json:"items"`
	ShippingPrice   decimal.NullDecimal `json:"shipping_price"`
	TaxTotal        decimal.NullDecimal `json:"tax_total"`
	DiscountTotal   decimal.NullDecimal `json:"discount_total"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	ShippingAddress *Address            `json:"shipping_address,omitempty"`
	BillingAddress  *Address            `json:"billing_address,omitempty"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
	CanceledAt      *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// Adjustments are the order-level price components. A nil component counts
// as zero.
type Adjustments struct {
	ShippingPrice decimal.NullDecimal
	TaxTotal      decimal.NullDecimal
	DiscountTotal decimal.NullDecimal
}

// NewOrderNumber formats ORD-YYYYMMDD-XXXXXXXX from the date and a random
// suffix.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Recalculate recomputes Subtotal and Total from the current state.
func (o *Order) Recalculate() {
	o.Subtotal = Subtotal(o.Items)
	o.Total = Total(o.Subtotal, o.ShippingPrice, o.TaxTotal, o.DiscountTotal)
}

// AddItem validates and appends a line, then recalculates.
func (o *Order) AddItem(item OrderItem, now time.Time) (OrderItem, error) {
	if err := item.Validate(); err != nil {
		return OrderItem{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.OrderID = o.ID
	item.CreatedAt = now
	item.UpdatedAt = now

	o.Items = append(o.Items, item)
	o.touch(now)
	return item, nil
}

// RemoveItem deletes a line and recalculates.
func (o *Order) RemoveItem(itemID string, now time.Time) error {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.touch(now)
			return nil
		}
	}
	return apperrors.NotFound("order item", itemID)
}

// UpdateItem applies patch to a line. The line is left unchanged if the
// result would break a quantity invariant.
func (o *Order) UpdateItem(itemID string, patch OrderItemPatch, now time.Time) (OrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID != itemID {
			continue
		}
		updated := o.Items[i]
		patch.apply(&updated)
		if err := updated.Validate(); err != nil {
			return OrderItem{}, err
		}
		updated.UpdatedAt = now
		o.Items[i] = updated
		o.touch(now)
		return updated, nil
	}
	return OrderItem{}, apperrors.NotFound("order item", itemID)
}

// SetAdjustments replaces shipping, tax and discount and recalculates.
func (o *Order) SetAdjustments(adj Adjustments, now time.Time) error {
	components := []struct {
		field string
		v     decimal.NullDecimal
	}{
		{"shipping_price", adj.ShippingPrice},
		{"tax_total", adj.TaxTotal},
		{"discount_total", adj.DiscountTotal},
	}
	for _, c := range components {
		if !c.v.Valid {
			continue
		}
		if c.v.Decimal.IsNegative() {
			return apperrors.ValidationFailed(c.field, "must not be negative")
		}
		if err := checkMoneyScale(c.field, c.v.Decimal); err != nil {
			return err
		}
	}
	o.ShippingPrice = adj.ShippingPrice
	o.TaxTotal = adj.TaxTotal
	o.DiscountTotal = adj.DiscountTotal
	o.touch(now)
	return nil
}

// SetStatus replaces the status. Moving to CANCELLED stamps CanceledAt.
func (o *Order) SetStatus(status OrderStatus, now time.Time) error {
	if !status.Valid() {
		return apperrors.ValidationFailed("status", "unknown order status "+string(status))
	}
	o.Status = status
	if status == OrderStatusCancelled && o.CanceledAt == nil {
		t := now
		o.CanceledAt = &t
	}
	o.UpdatedAt = now
	return nil
}

func (o *Order) touch(now time.Time) {
	o.UpdatedAt = now
	o.Recalculate()
}
