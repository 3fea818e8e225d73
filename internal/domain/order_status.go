package domain

import apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"

// OrderStatus is a descriptive tag on an order. Any known status may replace
// any other.
type OrderStatus string

const (
	OrderStatusDraft               OrderStatus = "DRAFT"
	OrderStatusPending             OrderStatus = "PENDING"
	OrderStatusProcessing          OrderStatus = "PROCESSING"
	OrderStatusAwaitingPayment     OrderStatus = "AWAITING_PAYMENT"
	OrderStatusAwaitingFulfillment OrderStatus = "AWAITING_FULFILLMENT"
	OrderStatusAwaitingPickup      OrderStatus = "AWAITING_PICKUP"
	OrderStatusAwaitingShipment    OrderStatus = "AWAITING_SHIPMENT"
	OrderStatusPartiallyShipped    OrderStatus = "PARTIALLY_SHIPPED"
	OrderStatusShipped             OrderStatus = "SHIPPED"
	OrderStatusDelivered           OrderStatus = "DELIVERED"
	OrderStatusCompleted           OrderStatus = "COMPLETED"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
	OrderStatusRefunded            OrderStatus = "REFUNDED"
	OrderStatusRequiresAction      OrderStatus = "REQUIRES_ACTION"
	OrderStatusArchived            OrderStatus = "ARCHIVED"
)

var orderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusAwaitingPayment,
	OrderStatusAwaitingFulfillment,
	OrderStatusAwaitingPickup,
	OrderStatusAwaitingShipment,
	OrderStatusPartiallyShipped,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusRequiresAction,
	OrderStatusArchived,
}

// OrderStatuses returns every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts s to an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", apperrors.ValidationFailed("status", "unknown order status "+s)
	}
	return status, nil
}
