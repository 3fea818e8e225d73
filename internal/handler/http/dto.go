package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
)

// money renders an amount with two decimal places, e.g. "41.00".
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := money(d.Decimal)
	return &s
}

// OrderItemResponse is the JSON form of an order line.
type OrderItemResponse struct {
	ID                string         `json:"id"`
	OrderID           string         `json:"order_id"`
	ProductID         string         `json:"product_id,omitempty"`
	VariantID         string         `json:"variant_id,omitempty"`
	Title             string         `json:"title"`
	SKU               string         `json:"sku,omitempty"`
	UnitPrice         string         `json:"unit_price"`
	Quantity          int            `json:"quantity"`
	FulfilledQuantity int            `json:"fulfilled_quantity"`
	ShippedQuantity   int            `json:"shipped_quantity"`
	ReturnedQuantity  int            `json:"returned_quantity"`
	UnshippedQuantity int            `json:"unshipped_quantity"`
	Subtotal          string         `json:"subtotal"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// OrderResponse is the JSON form of an order. Subtotal and Total are derived.
type OrderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"order_number"`
	CustomerID      string              `json:"customer_id"`
	Email           string              `json:"email"`
	Status          domain.OrderStatus  `json:"status"`
	Currency        string              `json:"currency"`
	Items           []OrderItemResponse `json:"items"`
	ShippingPrice   *string             `json:"shipping_price"`
	TaxTotal        *string             `json:"tax_total"`
	DiscountTotal   *string             `json:"discount_total"`
	Subtotal        string              `json:"subtotal"`
	Total           string              `json:"total"`
	ShippingAddress *domain.Address     `json:"shipping_address,omitempty"`
	BillingAddress  *domain.Address     `json:"billing_address,omitempty"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
	CanceledAt      *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:                it.ID,
			OrderID:           it.OrderID,
			ProductID:         it.ProductID,
			VariantID:         it.VariantID,
			Title:             it.Title,
			SKU:               it.SKU,
			UnitPrice:         money(it.UnitPrice),
			Quantity:          it.Quantity,
			FulfilledQuantity: it.FulfilledQuantity,
			ShippedQuantity:   it.ShippedQuantity,
			ReturnedQuantity:  it.ReturnedQuantity,
			UnshippedQuantity: it.UnshippedQuantity(),
			Subtotal:          money(domain.LineSubtotal(it)),
			Metadata:          it.Metadata,
			CreatedAt:         it.CreatedAt,
			UpdatedAt:         it.UpdatedAt,
		})
	}

	return OrderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		Email:           o.Email,
		Status:          o.Status,
		Currency:        o.Currency,
		Items:           items,
		ShippingPrice:   nullMoney(o.ShippingPrice),
		TaxTotal:        nullMoney(o.TaxTotal),
		DiscountTotal:   nullMoney(o.DiscountTotal),
		Subtotal:        money(o.Subtotal),
		Total:           money(o.Total),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Metadata:        o.Metadata,
		CanceledAt:      o.CanceledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func newOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}
