package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
	"github.com/Astrolithia/qvtu-shopping/pkg/pagination"
)

// IdempotencyKeyHeader makes order creation safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

// OrderHandler handles HTTP requests for admin order endpoints.
type OrderHandler struct {
	service *service.OrderService
	logger  *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(svc *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{service: svc, logger: logger}
}

// OrderItemRequest is one line of an order. Prices accept JSON strings or numbers.
type OrderItemRequest struct {
	ProductID string          `json:"product_id" validate:"omitempty,max=64"`
	VariantID string          `json:"variant_id" validate:"omitempty,max=64"`
	Title     string          `json:"title" validate:"required,max=255"`
	SKU       string          `json:"sku" validate:"omitempty,max=64"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Metadata  map[string]any  `json:"metadata"`
}

func (r OrderItemRequest) input() service.OrderItemInput {
	return service.OrderItemInput{
		ProductID: r.ProductID,
		VariantID: r.VariantID,
		Title:     r.Title,
		SKU:       r.SKU,
		UnitPrice: r.UnitPrice,
		Quantity:  r.Quantity,
		Metadata:  r.Metadata,
	}
}

// AdjustmentsRequest sets the order-level price components. null clears one.
type AdjustmentsRequest struct {
	ShippingPrice decimal.NullDecimal `json:"shipping_price" validate:"omitempty,gte=0"`
	TaxTotal      decimal.NullDecimal `json:"tax_total" validate:"omitempty,gte=0"`
	DiscountTotal decimal.NullDecimal `json:"discount_total" validate:"omitempty,gte=0"`
}

func (r AdjustmentsRequest) adjustments() domain.Adjustments {
	return domain.Adjustments{
		ShippingPrice: r.ShippingPrice,
		TaxTotal:      r.TaxTotal,
		DiscountTotal: r.DiscountTotal,
	}
}

// CreateOrderRequest is the JSON request body for creating an order.
type CreateOrderRequest struct {
	CustomerID string             `json:"customer_id" validate:"required,uuid"`
	Email      string             `json:"email" validate:"omitempty,email"`
	Currency   string             `json:"currency" validate:"omitempty,iso4217"`
	Items      []OrderItemRequest `json:"items" validate:"dive"`
	AdjustmentsRequest
	Metadata map[string]any `json:"metadata"`
}

// UpdateItemRequest changes quantities, price or metadata of a line.
type UpdateItemRequest struct {
	Quantity          *int             `json:"quantity" validate:"omitempty,gte=0"`
	FulfilledQuantity *int             `json:"fulfilled_quantity" validate:"omitempty,gte=0"`
	ShippedQuantity   *int             `json:"shipped_quantity" validate:"omitempty,gte=0"`
	ReturnedQuantity  *int             `json:"returned_quantity" validate:"omitempty,gte=0"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
	Metadata          map[string]any   `json:"metadata"`
}

// UpdateStatusRequest is the JSON request body for changing the status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,orderstatus"`
}

// Create handles POST /api/v1/admin/orders. A repeated Idempotency-Key
// returns the first order with 200 instead of 201.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.input())
	}

	order, created, err := h.service.Create(r.Context(), service.CreateOrderInput{
		CustomerID:     req.CustomerID,
		Email:          req.Email,
		Currency:       req.Currency,
		Items:          items,
		Adjustments:    req.adjustments(),
		Metadata:       req.Metadata,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	httputil.WriteData(w, status, newOrderResponse(order))
}

// List handles GET /api/v1/admin/orders?customer_id=&status=&offset=&limit=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	filter := repository.OrderFilter{Offset: page.Offset, Limit: page.Limit}

	q := r.URL.Query()
	if v := q.Get("customer_id"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return
		}
		s := id.String()
		filter.CustomerID = &s
	}
	if v := q.Get("status"); v != "" {
		status, err := domain.ParseOrderStatus(v)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		filter.Status = &status
	}

	orders, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(newOrderResponses(orders), total, page.Offset, page.Limit))
}

// Get handles GET /api/v1/admin/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	order, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// AddItem handles POST /api/v1/admin/orders/{id}/items
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req OrderItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	order, err := h.service.AddItem(r.Context(), id.String(), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, newOrderResponse(order))
}

// UpdateItem handles PUT /api/v1/admin/orders/{id}/items/{itemId}
func (h *OrderHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	order, err := h.service.UpdateItem(r.Context(), id.String(), itemID.String(), domain.OrderItemPatch{
		Quantity:          req.Quantity,
		FulfilledQuantity: req.FulfilledQuantity,
		ShippedQuantity:   req.ShippedQuantity,
		ReturnedQuantity:  req.ReturnedQuantity,
		UnitPrice:         req.UnitPrice,
		Metadata:          req.Metadata,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// RemoveItem handles DELETE /api/v1/admin/orders/{id}/items/{itemId}
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	order, err := h.service.RemoveItem(r.Context(), id.String(), itemID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// SetAdjustments handles PUT /api/v1/admin/orders/{id}/adjustments
func (h *OrderHandler) SetAdjustments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdjustmentsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	order, err := h.service.SetAdjustments(r.Context(), id.String(), req.adjustments())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// UpdateStatus handles PUT /api/v1/admin/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id.String(), domain.OrderStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newOrderResponse(order))
}

// ListStatuses handles GET /api/v1/order-statuses
func ListStatuses(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteData(w, http.StatusOK, domain.OrderStatuses())
}
