package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
	"github.com/Astrolithia/qvtu-shopping/pkg/pagination"
)

// CustomerHandler handles HTTP requests for admin customer endpoints.
type CustomerHandler struct {
	service *service.CustomerService
	logger  *slog.Logger
}

// NewCustomerHandler creates a new customer HTTP handler.
func NewCustomerHandler(svc *service.CustomerService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{service: svc, logger: logger}
}

// CustomerProfileRequest holds the profile fields shared by create and update.
type CustomerProfileRequest struct {
	Email     string         `json:"email" validate:"required,email"`
	FirstName string         `json:"first_name" validate:"max=100"`
	LastName  string         `json:"last_name" validate:"max=100"`
	Phone     string         `json:"phone" validate:"omitempty,max=32"`
	AvatarURL string         `json:"avatar_url" validate:"omitempty,url"`
	Metadata  map[string]any `json:"metadata"`
}

func (p CustomerProfileRequest) profile() domain.CustomerProfile {
	return domain.CustomerProfile{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
		Metadata:  p.Metadata,
	}
}

// CreateCustomerRequest is the JSON request body for creating a customer.
// Without a password a random one is generated.
type CreateCustomerRequest struct {
	CustomerProfileRequest
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

// UpdateCustomerRequest replaces every profile field.
type UpdateCustomerRequest struct {
	CustomerProfileRequest
}

// ReplaceGroupsRequest lists the groups the customer should belong to.
type ReplaceGroupsRequest struct {
	Groups []string `json:"groups" validate:"dive,uuid"`
}

// Create handles POST /api/v1/admin/customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	customer, err := h.service.Create(r.Context(), service.CreateCustomerInput{
		Profile:  req.profile(),
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, customer)
}

// List handles GET /api/v1/admin/customers?q=&offset=&limit=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)
	filter := repository.CustomerFilter{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Offset: page.Offset,
		Limit:  page.Limit,
	}

	customers, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(customers, total, page.Offset, page.Limit))
}

// Get handles GET /api/v1/admin/customers/{id}
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	customer, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, customer)
}

// Update handles PUT /api/v1/admin/customers/{id}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateCustomerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	customer, err := h.service.Update(r.Context(), id.String(), req.profile())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, customer)
}

// Delete handles DELETE /api/v1/admin/customers/{id}
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "customer deleted")
}

// ReplaceGroups handles POST /api/v1/admin/customers/{id}/customer-groups
func (h *CustomerHandler) ReplaceGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ReplaceGroupsRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	customer, err := h.service.ReplaceGroups(r.Context(), id.String(), req.Groups)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, customer)
}
