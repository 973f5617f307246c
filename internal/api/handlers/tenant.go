package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/go-chi/chi/v5"
)

type TenantHandler struct {
	store domain.TenantStore
}

func NewTenantHandler(store domain.TenantStore) *TenantHandler {
	return &TenantHandler{store: store}
}

type createTenantRequest struct {
	Name             string   `json:"name"`
	PlatformType     string   `json:"platform_type"`
	MonthlyQuota     *int64   `json:"monthly_quota"`
	DailyQuota       *int64   `json:"daily_quota"`
	RateLimit        *int     `json:"rate_limit"`
	MaxHistory       *int     `json:"max_history"`
	DefaultModel     *string  `json:"default_model"`
	AvailableModels  []string `json:"available_models"`
	AllowModelSwitch *bool    `json:"allow_model_switch"`
}

type updateTenantRequest struct {
	Name             *string  `json:"name"`
	PlatformType     *string  `json:"platform_type"`
	MonthlyQuota     *int64   `json:"monthly_quota"`
	DailyQuota       *int64   `json:"daily_quota"`
	RateLimit        *int     `json:"rate_limit"`
	MaxHistory       *int     `json:"max_history"`
	DefaultModel     *string  `json:"default_model"`
	AvailableModels  []string `json:"available_models"`
	AllowModelSwitch *bool    `json:"allow_model_switch"`
	IsActive         *bool    `json:"is_active"`
}

// Create registers a new tenant.
// POST /v1/admin/tenants
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !domain.ValidPlatformType(req.PlatformType) {
		writeError(w, http.StatusBadRequest, "platform_type must be public or private")
		return
	}

	tenant := &domain.Tenant{
		Name:             req.Name,
		PlatformType:     domain.PlatformType(req.PlatformType),
		MonthlyQuota:     req.MonthlyQuota,
		DailyQuota:       req.DailyQuota,
		RateLimit:        req.RateLimit,
		MaxHistory:       req.MaxHistory,
		DefaultModel:     req.DefaultModel,
		AvailableModels:  req.AvailableModels,
		AllowModelSwitch: req.AllowModelSwitch,
		IsActive:         true,
	}

	if err := h.store.Create(r.Context(), tenant); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// List returns all tenants.
// GET /v1/admin/tenants?active=true
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	tenants, err := h.store.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenants": tenants,
		"count":   len(tenants),
	})
}

// Get returns one tenant by id.
// GET /v1/admin/tenants/{id}
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	tenant, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Update applies a partial update. Absent fields are left unchanged.
// PATCH /v1/admin/tenants/{id}
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := domain.TenantUpdate{
		Name:             req.Name,
		MonthlyQuota:     req.MonthlyQuota,
		DailyQuota:       req.DailyQuota,
		RateLimit:        req.RateLimit,
		MaxHistory:       req.MaxHistory,
		DefaultModel:     req.DefaultModel,
		AvailableModels:  req.AvailableModels,
		AllowModelSwitch: req.AllowModelSwitch,
		IsActive:         req.IsActive,
	}
	if req.PlatformType != nil {
		if !domain.ValidPlatformType(*req.PlatformType) {
			writeError(w, http.StatusBadRequest, "platform_type must be public or private")
			return
		}
		pt := domain.PlatformType(*req.PlatformType)
		update.PlatformType = &pt
	}

	tenant, err := h.store.Update(r.Context(), id, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Deactivate soft-deletes a tenant. Its credentials stop authenticating but
// usage history is retained.
// DELETE /v1/admin/tenants/{id}
func (h *TenantHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.store.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
