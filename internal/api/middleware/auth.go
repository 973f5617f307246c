package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/chatrelay/chatrelay/internal/domain"
)

type contextKey string

const (
	credentialContextKey contextKey = "credential"
	tenantContextKey     contextKey = "tenant"
)

func CredentialFromContext(ctx context.Context) *domain.Credential {
	c, _ := ctx.Value(credentialContextKey).(*domain.Credential)
	return c
}

func TenantFromContext(ctx context.Context) *domain.Tenant {
	t, _ := ctx.Value(tenantContextKey).(*domain.Tenant)
	return t
}

// APIKeyAuth authenticates the Bearer API key, loads its credential and
// owning tenant into the request context, and rejects revoked or expired
// keys and inactive tenants. The last-used timestamp is updated best-effort.
func APIKeyAuth(credentials domain.CredentialStore, tenants domain.TenantStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			credential, err := credentials.GetByHash(r.Context(), HashAPIKey(parts[1]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if !credential.IsActive {
				writeError(w, http.StatusUnauthorized, "API key revoked")
				return
			}
			if credential.Expired(time.Now()) {
				writeError(w, http.StatusUnauthorized, "API key expired")
				return
			}

			tenant, err := tenants.GetByID(r.Context(), credential.TenantID)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			if !tenant.IsActive {
				writeError(w, http.StatusForbidden, "tenant is inactive")
				return
			}

			_ = credentials.TouchLastUsed(r.Context(), credential.ID)

			ctx := context.WithValue(r.Context(), credentialContextKey, credential)
			ctx = context.WithValue(ctx, tenantContextKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTier gates a route group on a minimum access tier. Must run after
// APIKeyAuth.
func RequireTier(min domain.AccessTier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := CredentialFromContext(r.Context())
			if credential == nil || !credential.Tier.AtLeast(min) {
				writeError(w, http.StatusForbidden, "insufficient access tier")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashAPIKey returns the hex sha256 digest stored in place of the secret.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
