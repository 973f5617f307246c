package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chatrelay/chatrelay/internal/api/middleware"
	"github.com/chatrelay/chatrelay/internal/domain"
)

const keyPrefixLen = 12

type CredentialHandler struct {
	store domain.CredentialStore
}

func NewCredentialHandler(store domain.CredentialStore) *CredentialHandler {
	return &CredentialHandler{store: store}
}

type createKeyRequest struct {
	Name         string `json:"name"`
	Tier         string `json:"tier"`
	MonthlyQuota *int64 `json:"monthly_quota"`
	DailyQuota   *int64 `json:"daily_quota"`
	ExpiresAt    string `json:"expires_at,omitempty"` // RFC 3339
}

type createKeyResponse struct {
	Credential *domain.Credential `json:"credential"`
	// APIKey is the full secret, returned exactly once.
	APIKey string `json:"api_key"`
}

// Create mints a new API key for the caller's tenant. The secret appears in
// this response and nowhere else; only its hash and prefix are stored.
// POST /v1/keys  (team_lead+)
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	credential := middleware.CredentialFromContext(r.Context())
	tenant := middleware.TenantFromContext(r.Context())
	if credential == nil || tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Tier == "" {
		req.Tier = string(domain.TierUser)
	}
	if !domain.ValidAccessTier(req.Tier) {
		writeError(w, http.StatusBadRequest, "tier must be user, team_lead or admin")
		return
	}
	// A key can only grant what its creator has.
	if !credential.Tier.AtLeast(domain.AccessTier(req.Tier)) {
		writeError(w, http.StatusForbidden, "cannot create a key above your own tier")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expires_at must be RFC 3339")
			return
		}
		expiresAt = &t
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	created := &domain.Credential{
		TenantID:     tenant.ID,
		KeyHash:      middleware.HashAPIKey(apiKey),
		KeyPrefix:    apiKey[:keyPrefixLen],
		Name:         req.Name,
		Tier:         domain.AccessTier(req.Tier),
		MonthlyQuota: req.MonthlyQuota,
		DailyQuota:   req.DailyQuota,
		IsActive:     true,
		CreatedBy:    credential.Name,
		ExpiresAt:    expiresAt,
	}

	if err := h.store.Create(r.Context(), created); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create API key")
		return
	}

	writeJSON(w, http.StatusCreated, createKeyResponse{
		Credential: created,
		APIKey:     apiKey,
	})
}

// List returns the caller's tenant's keys. Secrets are never included.
// GET /v1/keys  (team_lead+)
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	credentials, err := h.store.ListByTenant(r.Context(), tenant.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list API keys")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"keys":  credentials,
		"count": len(credentials),
	})
}

// Revoke deactivates a key. The row is kept so usage history stays
// attributable.
// POST /v1/keys/{id}/revoke  (team_lead+)
func (h *CredentialHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	target, ok := h.tenantScoped(w, r)
	if !ok {
		return
	}

	if err := h.store.Revoke(r.Context(), target.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// Delete permanently removes a key.
// DELETE /v1/keys/{id}  (team_lead+)
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	target, ok := h.tenantScoped(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), target.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// tenantScoped loads the key named in the path and verifies it belongs to
// the caller's tenant. Cross-tenant key ids read as not found.
func (h *CredentialHandler) tenantScoped(w http.ResponseWriter, r *http.Request) (*domain.Credential, bool) {
	tenant := middleware.TenantFromContext(r.Context())
	if tenant == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}

	target, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	if target.TenantID != tenant.ID {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return target, true
}

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ak_" + hex.EncodeToString(b), nil
}
