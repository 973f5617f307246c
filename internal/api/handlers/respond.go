package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chatrelay/chatrelay/internal/domain"
	"github.com/chatrelay/chatrelay/internal/service"
	"github.com/chatrelay/chatrelay/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain sentinels to client-visible statuses. Quota
// denials carry their status payload so the client sees used/limit/reset;
// rate limiting and quota exhaustion share 429 but stay distinguishable by
// body.
func writeServiceError(w http.ResponseWriter, err error) {
	var quotaErr *service.QuotaError
	if errors.As(err, &quotaErr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error": "quota exceeded",
			"quota": quotaErr.Status,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, domain.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, domain.ErrTenantInactive):
		writeError(w, http.StatusForbidden, "tenant is inactive")
	case errors.Is(err, domain.ErrModelSwitchNotAllowed):
		writeError(w, http.StatusForbidden, "model switching not allowed")
	case errors.Is(err, domain.ErrModelNotAvailable):
		writeError(w, http.StatusBadRequest, "model not available")
	case errors.Is(err, domain.ErrUnknownPlatform):
		writeError(w, http.StatusBadRequest, "unknown platform")
	case errors.Is(err, domain.ErrUpstreamFailure):
		writeError(w, http.StatusBadGateway, "upstream AI request failed")
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
