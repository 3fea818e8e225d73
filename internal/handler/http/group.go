package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Astrolithia/qvtu-shopping/internal/service"
	"github.com/Astrolithia/qvtu-shopping/pkg/httputil"
	"github.com/Astrolithia/qvtu-shopping/pkg/pagination"
)

// GroupHandler handles HTTP requests for customer groups.
type GroupHandler struct {
	service *service.GroupService
	logger  *slog.Logger
}

// NewGroupHandler creates a new customer group HTTP handler.
func NewGroupHandler(svc *service.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{service: svc, logger: logger}
}

// CreateGroupRequest is the JSON request body for creating a group.
type CreateGroupRequest struct {
	Name     string         `json:"name" validate:"required,max=100"`
	Metadata map[string]any `json:"metadata"`
}

// Create handles POST /api/v1/admin/customer-groups
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	group, err := h.service.Create(r.Context(), req.Name, req.Metadata)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, group)
}

// List handles GET /api/v1/admin/customer-groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	groups, total, err := h.service.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, httputil.NewListResponse(groups, total, page.Offset, page.Limit))
}

// Get handles GET /api/v1/admin/customer-groups/{id}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	group, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, group)
}

// Delete handles DELETE /api/v1/admin/customer-groups/{id}
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "customer group deleted")
}
