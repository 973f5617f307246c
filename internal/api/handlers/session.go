package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/chatrelay/chatrelay/internal/api/middleware"
	"github.com/chatrelay/chatrelay/internal/service"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	registry *service.SessionRegistry
}

func NewSessionHandler(registry *service.SessionRegistry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

type sessionTargetRequest struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
}

type switchModelRequest struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
	Model    string `json:"model"`
}

func (h *SessionHandler) target(w http.ResponseWriter, r *http.Request, platform, userID string) (string, bool) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	if platform == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "platform and user_id are required")
		return "", false
	}
	return service.SessionKey(platform, &tenant.ID, userID), true
}

// Get returns the caller's session for a platform/user pair.
// GET /v1/sessions?platform=...&user_id=...
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := h.target(w, r, r.URL.Query().Get("platform"), r.URL.Query().Get("user_id"))
	if !ok {
		return
	}

	session, ok := h.registry.Snapshot(key)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Delete removes the caller's session.
// DELETE /v1/sessions
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req sessionTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, ok := h.target(w, r, req.Platform, req.UserID)
	if !ok {
		return
	}

	credential := middleware.CredentialFromContext(r.Context())
	deleted, err := h.registry.DeleteIfOwned(key, &credential.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ClearHistory empties the caller's session history without ending the
// session.
// POST /v1/sessions/clear
func (h *SessionHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	var req sessionTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, ok := h.target(w, r, req.Platform, req.UserID)
	if !ok {
		return
	}

	credential := middleware.CredentialFromContext(r.Context())
	if err := h.registry.ClearHistory(key, &credential.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// SwitchModel changes the caller's session model.
// POST /v1/sessions/model
func (h *SessionHandler) SwitchModel(w http.ResponseWriter, r *http.Request) {
	var req switchModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	key, ok := h.target(w, r, req.Platform, req.UserID)
	if !ok {
		return
	}

	credential := middleware.CredentialFromContext(r.Context())
	if err := h.registry.SwitchModel(key, req.Model, &credential.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "switched", "model": req.Model})
}

// ListByTenant lists all live sessions for the caller's tenant.
// GET /v1/sessions/all  (team_lead+)
func (h *SessionHandler) ListByTenant(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions := h.registry.ListByTenant(tenant.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// AdminList lists all live sessions, optionally filtered by platform.
// GET /v1/admin/sessions?platform=...
func (h *SessionHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.List(r.URL.Query().Get("platform"))
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// AdminDelete force-removes a session by its opaque id.
// DELETE /v1/admin/sessions/{id}
func (h *SessionHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.registry.DeleteByID(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AdminSweep triggers an immediate idle sweep.
// POST /v1/admin/sessions/sweep?max_idle_minutes=30
func (h *SessionHandler) AdminSweep(w http.ResponseWriter, r *http.Request) {
	maxIdle := 30 * time.Minute
	if v := r.URL.Query().Get("max_idle_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_idle_minutes must be a positive integer")
			return
		}
		maxIdle = time.Duration(n) * time.Minute
	}

	removed := h.registry.SweepIdle(maxIdle)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// AdminStats reports registry-level counters.
// GET /v1/admin/sessions/stats
func (h *SessionHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"total":      h.registry.Count(),
		"active_5m":  h.registry.CountActive(5 * time.Minute),
		"active_30m": h.registry.CountActive(30 * time.Minute),
	})
}
