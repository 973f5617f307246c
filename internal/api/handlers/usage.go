package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chatrelay/chatrelay/internal/api/middleware"
	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/service"
)

type UsageHandler struct {
	quota *service.QuotaService
}

func NewUsageHandler(quota *service.QuotaService) *UsageHandler {
	return &UsageHandler{quota: quota}
}

// Quota reports the caller's current standing for both quota periods.
// GET /v1/quota
func (h *UsageHandler) Quota(w http.ResponseWriter, r *http.Request) {
	credential := middleware.CredentialFromContext(r.Context())
	tenant := middleware.TenantFromContext(r.Context())
	if credential == nil || tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	daily, err := h.quota.Status(r.Context(), credential, tenant, domain.PeriodDaily)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute quota status")
		return
	}
	monthly, err := h.quota.Status(r.Context(), credential, tenant, domain.PeriodMonthly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute quota status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]domain.QuotaStatus{
		"daily":   daily,
		"monthly": monthly,
	})
}

// Summary aggregates the tenant's usage over a trailing window.
// GET /v1/usage/summary?window_hours=24  (team_lead+)
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	windowHours := 24
	if v := r.URL.Query().Get("window_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window_hours must be a positive integer")
			return
		}
		windowHours = n
	}

	summary, err := h.quota.TenantUsage(r.Context(), tenant.ID, time.Duration(windowHours)*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize usage")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Recent returns the tenant's newest usage rows.
// GET /v1/usage/recent?limit=50  (team_lead+)
func (h *UsageHandler) Recent(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	records, err := h.quota.RecentUsage(r.Context(), tenant.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list usage")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usage": records,
		"count": len(records),
	})
}
