package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
)

// AddressHandler handles HTTP requests for a customer's address book.
type AddressHandler struct {
	service *service.AddressService
	logger  *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(svc *service.AddressService, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{service: svc, logger: logger}
}

// CreateAddressRequest is the JSON request body for adding an address.
type CreateAddressRequest struct {
	FirstName         string         `json:"first_name" validate:"max=100"`
	LastName          string         `json:"last_name" validate:"max=100"`
	Company           string         `json:"company" validate:"max=200"`
	Address1          string         `json:"address_1" validate:"required,max=255"`
	Address2          string         `json:"address_2" validate:"max=255"`
	City              string         `json:"city" validate:"required,max=100"`
	Province          string         `json:"province" validate:"max=100"`
	PostalCode        string         `json:"postal_code" validate:"max=20"`
	CountryCode       string         `json:"country_code" validate:"required,iso3166_1_alpha2"`
	Phone             string         `json:"phone" validate:"max=32"`
	Metadata          map[string]any `json:"metadata"`
	IsDefaultShipping bool           `json:"is_default_shipping"`
	IsDefaultBilling  bool           `json:"is_default_billing"`
}

// UpdateAddressRequest is a partial update. Absent fields are left alone.
type UpdateAddressRequest struct {
	FirstName         *string        `json:"first_name" validate:"omitempty,max=100"`
	LastName          *string        `json:"last_name" validate:"omitempty,max=100"`
	Company           *string        `json:"company" validate:"omitempty,max=200"`
	Address1          *string        `json:"address_1" validate:"omitempty,min=1,max=255"`
	Address2          *string        `json:"address_2" validate:"omitempty,max=255"`
	City              *string        `json:"city" validate:"omitempty,min=1,max=100"`
	Province          *string        `json:"province" validate:"omitempty,max=100"`
	PostalCode        *string        `json:"postal_code" validate:"omitempty,max=20"`
	CountryCode       *string        `json:"country_code" validate:"omitempty,iso3166_1_alpha2"`
	Phone             *string        `json:"phone" validate:"omitempty,max=32"`
	Metadata          map[string]any `json:"metadata"`
	IsDefaultShipping *bool          `json:"is_default_shipping"`
	IsDefaultBilling  *bool          `json:"is_default_billing"`
}

// customerAndAddress parses the {id} and {addressId} path parameters.
func customerAndAddress(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	customerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return "", "", false
	}
	addressID, ok := httputil.ParseUUID(w, chi.URLParam(r, "addressId"))
	if !ok {
		return "", "", false
	}
	return customerID.String(), addressID.String(), true
}

// List handles GET /api/v1/admin/customers/{id}/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	addresses, err := h.service.List(r.Context(), customerID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, addresses)
}

// Add handles POST /api/v1/admin/customers/{id}/addresses
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	customerID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CreateAddressRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	address, err := h.service.Add(r.Context(), customerID.String(), domain.Address{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Company:           req.Company,
		Address1:          req.Address1,
		Address2:          req.Address2,
		City:              req.City,
		Province:          req.Province,
		PostalCode:        req.PostalCode,
		CountryCode:       req.CountryCode,
		Phone:             req.Phone,
		Metadata:          req.Metadata,
		IsDefaultShipping: req.IsDefaultShipping,
		IsDefaultBilling:  req.IsDefaultBilling,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, address)
}

// Get handles GET /api/v1/admin/customers/{id}/addresses/{addressId}
func (h *AddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := customerAndAddress(w, r)
	if !ok {
		return
	}

	address, err := h.service.Get(r.Context(), customerID, addressID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, address)
}

// Update handles PUT /api/v1/admin/customers/{id}/addresses/{addressId}
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := customerAndAddress(w, r)
	if !ok {
		return
	}

	var req UpdateAddressRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	address, err := h.service.Update(r.Context(), customerID, addressID, domain.AddressPatch{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Company:           req.Company,
		Address1:          req.Address1,
		Address2:          req.Address2,
		City:              req.City,
		Province:          req.Province,
		PostalCode:        req.PostalCode,
		CountryCode:       req.CountryCode,
		Phone:             req.Phone,
		Metadata:          req.Metadata,
		IsDefaultShipping: req.IsDefaultShipping,
		IsDefaultBilling:  req.IsDefaultBilling,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, address)
}

// SetDefault handles PUT /api/v1/admin/customers/{id}/addresses/{addressId}/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := customerAndAddress(w, r)
	if !ok {
		return
	}

	address, err := h.service.SetDefault(r.Context(), customerID, addressID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, address)
}

// Remove handles DELETE /api/v1/admin/customers/{id}/addresses/{addressId}
func (h *AddressHandler) Remove(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := customerAndAddress(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), customerID, addressID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "address removed")
}
