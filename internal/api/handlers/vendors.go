package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// VendorsHandler handles vendor HTTP requests.
type VendorsHandler struct {
	*Base
}

// NewVendorsHandler creates a new vendors handler.
func NewVendorsHandler(repo storage.Repository) *VendorsHandler {
	return &VendorsHandler{Base: NewBase(repo)}
}

// List handles GET /api/vendors.
func (h *VendorsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	if tenant == "" {
		h.WriteJSON(w, http.StatusOK, dto.NewListResponse[*storage.Vendor](nil))
		return
	}

	vendors, err := h.repo.ListVendors(tenant)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewListResponse(vendors))
}

// Create handles POST /api/vendors.
func (h *VendorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}

	var req dto.CreateVendorRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("name is required"))
		return
	}

	vendor := &storage.Vendor{
		ID:                uuid.NewString(),
		TenantID:          tenant,
		Name:              req.Name,
		DefaultCategoryID: req.DefaultCategoryID,
		CreatedAt:         time.Now().UTC(),
	}

	if err := h.repo.SaveVendor(vendor); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, vendor)
}
