package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// OrderService implements order creation and line maintenance. Totals are
// recomputed by the domain on every mutation before anything is persisted.
type OrderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	addressRepo  repository.AddressRepository
	idempotency  repository.IdempotencyStore
	producer     *event.Producer
	logger       *slog.Logger
	now          func() time.Time
}

// NewOrderService creates a new order service. idempotency may be nil, in
// which case Idempotency-Key is ignored.
func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	addressRepo repository.AddressRepository,
	idempotency repository.IdempotencyStore,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		addressRepo:  addressRepo,
		idempotency:  idempotency,
		producer:     producer,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// OrderItemInput is one line of a new order.
type OrderItemInput struct {
	ProductID string
	VariantID string
	Title     string
	SKU       string
	UnitPrice decimal.Decimal
	Quantity  int
	Metadata  map[string]any
}

func (in OrderItemInput) item() domain.OrderItem {
	return domain.OrderItem{
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Title:     in.Title,
		SKU:       in.SKU,
		UnitPrice: in.UnitPrice,
		Quantity:  in.Quantity,
		Metadata:  in.Metadata,
	}
}

// CreateOrderInput holds the parameters for a new order. Email defaults to
// the customer's and Currency to CNY.
type CreateOrderInput struct {
	CustomerID     string
	Email          string
	Currency       string
	Items          []OrderItemInput
	Adjustments    domain.Adjustments
	Metadata       map[string]any
	IdempotencyKey string
}

// Create places an order for a customer, snapshotting its default addresses.
// With an idempotency key a replay returns the first order and created=false.
func (s *OrderService) Create(ctx context.Context, input CreateOrderInput) (order *domain.Order, created bool, err error) {
	customer, err := s.customerRepo.GetByID(ctx, input.CustomerID)
	if err != nil {
		return nil, false, fmt.Errorf("get customer: %w", err)
	}

	orderID := uuid.NewString()
	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" && s.idempotency != nil {
		existingID, reserved, resErr := s.idempotency.Reserve(ctx, key, orderID)
		if resErr != nil {
			return nil, false, fmt.Errorf("reserve idempotency key: %w", resErr)
		}
		if !reserved {
			return s.replay(ctx, key, existingID)
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.idempotency.Release(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.WarnContext(ctx, "failed to release idempotency key",
					slog.String("idempotency_key", key),
					slog.String("error", relErr.Error()),
				)
			}
		}()
	}

	now := s.now()
	order = &domain.Order{
		ID:          orderID,
		OrderNumber: domain.NewOrderNumber(now),
		CustomerID:  customer.ID,
		Email:       normalizeEmail(input.Email),
		Status:      domain.OrderStatusDraft,
		Currency:    strings.ToUpper(strings.TrimSpace(input.Currency)),
		Items:       []domain.OrderItem{},
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if order.Email == "" {
		order.Email = customer.Email
	}
	if order.Currency == "" {
		order.Currency = domain.DefaultCurrency
	}

	addresses, err := s.addressRepo.List(ctx, customer.ID)
	if err != nil {
		return nil, false, fmt.Errorf("list addresses: %w", err)
	}
	for i := range addresses {
		a := addresses[i]
		if a.IsDefaultShipping {
			order.ShippingAddress = &a
		}
		if a.IsDefaultBilling {
			order.BillingAddress = &a
		}
	}

	for _, in := range input.Items {
		if _, err := order.AddItem(in.item(), now); err != nil {
			return nil, false, err
		}
	}
	if err := order.SetAdjustments(input.Adjustments, now); err != nil {
		return nil, false, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, false, fmt.Errorf("create order: %w", err)
	}

	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		logPublishError(ctx, s.logger, event.TopicOrderCreated, order.ID, err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("customer_id", order.CustomerID),
		slog.String("total", order.Total.StringFixed(2)),
	)

	return order, true, nil
}

func (s *OrderService) replay(ctx context.Context, key, orderID string) (*domain.Order, bool, error) {
	existing, err := s.orderRepo.GetByID(ctx, orderID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, apperrors.Conflict("an order for this idempotency key is still being created")
	}
	if err != nil {
		return nil, false, fmt.Errorf("get replayed order: %w", err)
	}

	s.logger.InfoContext(ctx, "order create replayed",
		slog.String("order_id", existing.ID),
		slog.String("idempotency_key", key),
	)
	return existing, false, nil
}

// Get returns an order with its items.
func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// List returns a page of orders filtered by customer and status.
func (s *OrderService) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	orders, total, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// mutate applies fn to the locked order and publishes order.updated.
func (s *OrderService) mutate(ctx context.Context, orderID, action string, fn func(*domain.Order, time.Time) error) (*domain.Order, error) {
	order, err := s.orderRepo.Mutate(ctx, orderID, func(o *domain.Order) error {
		return fn(o, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	if err := s.producer.PublishOrderUpdated(ctx, order); err != nil {
		logPublishError(ctx, s.logger, event.TopicOrderUpdated, order.ID, err)
	}

	s.logger.InfoContext(ctx, "order updated",
		slog.String("order_id", order.ID),
		slog.String("action", action),
		slog.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

// AddItem appends a line to the order.
func (s *OrderService) AddItem(ctx context.Context, orderID string, in OrderItemInput) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "add order item", func(o *domain.Order, now time.Time) error {
		_, err := o.AddItem(in.item(), now)
		return err
	})
}

// UpdateItem changes a line's quantity, price or fulfilment counters.
func (s *OrderService) UpdateItem(ctx context.Context, orderID, itemID string, patch domain.OrderItemPatch) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "update order item", func(o *domain.Order, now time.Time) error {
		_, err := o.UpdateItem(itemID, patch, now)
		return err
	})
}

// RemoveItem deletes a line from the order.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID string) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "remove order item", func(o *domain.Order, now time.Time) error {
		return o.RemoveItem(itemID, now)
	})
}

// SetAdjustments replaces shipping, tax and discount.
func (s *OrderService) SetAdjustments(ctx context.Context, orderID string, adj domain.Adjustments) (*domain.Order, error) {
	return s.mutate(ctx, orderID, "set order adjustments", func(o *domain.Order, now time.Time) error {
		return o.SetAdjustments(adj, now)
	})
}

// UpdateStatus replaces the order status. Any known status may follow any other.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, apperrors.ValidationFailed("status", "unknown order status "+string(status))
	}

	var old domain.OrderStatus
	order, err := s.orderRepo.Mutate(ctx, orderID, func(o *domain.Order) error {
		old = o.Status
		return o.SetStatus(status, s.now())
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, order, old); err != nil {
		logPublishError(ctx, s.logger, event.TopicOrderStatusChanged, order.ID, err)
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", order.ID),
		slog.String("from", string(old)),
		slog.String("to", string(order.Status)),
	)
	return order, nil
}
