package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	pkgkafka "github.com/Astrolithia/qvtu-shopping/pkg/kafka"
)

// Kafka topics for customer and order domain events.
const (
	TopicCustomerCreated       = "customer.created"
	TopicCustomerUpdated       = "customer.updated"
	TopicCustomerDeleted       = "customer.deleted"
	TopicDefaultAddressChanged = "customer.address.default_changed"
	TopicOrderCreated          = "order.created"
	TopicOrderUpdated          = "order.updated"
	TopicOrderStatusChanged    = "order.status_changed"
)

// Aggregate types.
const (
	AggregateTypeCustomer = "customer"
	AggregateTypeOrder    = "order"
)

// Source identifies events originating from this service.
const Source = "qvtu-shopping"

// Publisher writes an event to a topic. *pkgkafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// LogPublisher is used when Kafka is disabled. It only logs the event.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that drops events after logging them.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, topic string, event *pkgkafka.Event) error {
	p.logger.DebugContext(ctx, "event not published, kafka disabled",
		slog.String("topic", topic),
		slog.String("event_id", event.EventID),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// CustomerData is the payload of customer.created and customer.updated.
type CustomerData struct {
	ID        string  `json:"id"`
	UserID    *string `json:"user_id,omitempty"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone,omitempty"`
}

// CustomerDeletedData is the payload of customer.deleted.
type CustomerDeletedData struct {
	ID string `json:"id"`
}

// DefaultAddressChangedData is the payload of customer.address.default_changed.
type DefaultAddressChangedData struct {
	CustomerID               string  `json:"customer_id"`
	DefaultShippingAddressID *string `json:"default_shipping_address_id"`
	DefaultBillingAddressID  *string `json:"default_billing_address_id"`
}

// OrderData is the payload of order.created and order.updated.
type OrderData struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	Status      string `json:"status"`
	Currency    string `json:"currency"`
	ItemCount   int    `json:"item_count"`
	Subtotal    string `json:"subtotal"`
	Total       string `json:"total"`
}

// OrderStatusChangedData is the payload of order.status_changed.
type OrderStatusChangedData struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// Producer publishes customer and order domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func customerData(c *domain.Customer) CustomerData {
	return CustomerData{
		ID:        c.ID,
		UserID:    c.UserID,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
	}
}

// PublishCustomerCreated publishes a customer.created event.
func (p *Producer) PublishCustomerCreated(ctx context.Context, c *domain.Customer) error {
	return p.publish(ctx, TopicCustomerCreated, c.ID, AggregateTypeCustomer, customerData(c))
}

// PublishCustomerUpdated publishes a customer.updated event.
func (p *Producer) PublishCustomerUpdated(ctx context.Context, c *domain.Customer) error {
	return p.publish(ctx, TopicCustomerUpdated, c.ID, AggregateTypeCustomer, customerData(c))
}

// PublishCustomerDeleted publishes a customer.deleted event.
func (p *Producer) PublishCustomerDeleted(ctx context.Context, customerID string) error {
	return p.publish(ctx, TopicCustomerDeleted, customerID, AggregateTypeCustomer,
		CustomerDeletedData{ID: customerID})
}

// PublishDefaultAddressChanged publishes the customer's current default
// address ids.
func (p *Producer) PublishDefaultAddressChanged(ctx context.Context, customerID string, shippingID, billingID *string) error {
	return p.publish(ctx, TopicDefaultAddressChanged, customerID, AggregateTypeCustomer,
		DefaultAddressChangedData{
			CustomerID:               customerID,
			DefaultShippingAddressID: shippingID,
			DefaultBillingAddressID:  billingID,
		})
}

func orderData(o *domain.Order) OrderData {
	return OrderData{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		Currency:    o.Currency,
		ItemCount:   len(o.Items),
		Subtotal:    o.Subtotal.StringFixed(2),
		Total:       o.Total.StringFixed(2),
	}
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderCreated, o.ID, AggregateTypeOrder, orderData(o))
}

// PublishOrderUpdated publishes an order.updated event after an item or
// adjustment change.
func (p *Producer) PublishOrderUpdated(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderUpdated, o.ID, AggregateTypeOrder, orderData(o))
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, o *domain.Order, old domain.OrderStatus) error {
	return p.publish(ctx, TopicOrderStatusChanged, o.ID, AggregateTypeOrder, OrderStatusChangedData{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		OldStatus:   string(old),
		NewStatus:   string(o.Status),
	})
}
