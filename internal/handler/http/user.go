package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
	"github.com/Astrolithia/qvtu-shopping/pkg/middleware"
	"github.com/Astrolithia/qvtu-shopping/pkg/pagination"
)

// UserHandler handles HTTP requests for the caller's own account and for
// admin account management.
type UserHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON request body for PUT /users/me. Omitted
// fields keep their value.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

func (p UpdateProfileRequest) input() service.UpdateProfileInput {
	return service.UpdateProfileInput{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
	}
}

// UpdateUserRequest is the JSON request body for an admin account update.
type UpdateUserRequest struct {
	UpdateProfileRequest
	IsActive *bool    `json:"is_active"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

// ChangePasswordRequest is the JSON request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// UserResponse is the JSON form of an account merged with its profile.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Roles       []string   `json:"roles"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CustomerID  string     `json:"customer_id,omitempty"`
	FirstName   string     `json:"first_name,omitempty"`
	LastName    string     `json:"last_name,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newUserResponse(d *service.UserDetails) UserResponse {
	a := d.Account
	resp := UserResponse{
		ID:          a.ID,
		Email:       a.Email,
		Roles:       a.Roles,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if c := d.Customer; c != nil {
		resp.CustomerID = c.ID
		resp.FirstName = c.FirstName
		resp.LastName = c.LastName
		resp.Phone = c.Phone
		resp.AvatarURL = c.AvatarURL
		if c.UpdatedAt.After(resp.UpdatedAt) {
			resp.UpdatedAt = c.UpdatedAt
		}
	}
	return resp
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newUserResponse(details))
}

// UpdateMe handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	details, err := h.service.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), req.input())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newUserResponse(details))
}

// ChangePassword handles PUT /api/v1/users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.UserIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "password changed")
}

// List handles GET /api/v1/admin/users?offset=&limit=
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	details, total, err := h.service.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	users := make([]UserResponse, 0, len(details))
	for i := range details {
		users = append(users, newUserResponse(&details[i]))
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(users, total, page.Offset, page.Limit))
}

// Get handles GET /api/v1/admin/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	details, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newUserResponse(details))
}

// Update handles PUT /api/v1/admin/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	details, err := h.service.Update(r.Context(), id.String(), service.UpdateUserInput{
		UpdateProfileInput: req.input(),
		IsActive:           req.IsActive,
		Roles:              req.Roles,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, newUserResponse(details))
}

// Delete handles DELETE /api/v1/admin/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "user deleted")
}
