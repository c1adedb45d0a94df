package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// ClientStore looks up API clients by key
type ClientStore interface {
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error
}

// AuthMiddleware handles API key authentication
type AuthMiddleware struct {
	clients ClientStore
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(clients ClientStore) *AuthMiddleware {
	return &AuthMiddleware{clients: clients}
}

// Authenticate verifies API key from Authorization header
// Supports formats: "Bearer <key>" or "<key>" in Authorization header
// Also supports X-API-Key header
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			respondError(w, http.StatusUnauthorized, "missing_api_key", "provide Authorization header with Bearer token or X-API-Key header")
			return
		}

		client, err := m.clients.GetClientByApiKey(r.Context(), apiKey)
		if err != nil {
			slog.Error("failed to lookup api client", "error", err, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		if client == nil {
			slog.Warn("invalid api key attempt", "key_prefix", maskKey(apiKey), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_api_key", "the provided api key is not valid")
			return
		}

		if !client.IsActive {
			slog.Warn("inactive client attempt", "client", client.Name, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusUnauthorized, "client_inactive", "this api key has been deactivated")
			return
		}

		// don't block the request on bookkeeping
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.clients.UpdateClientLastUsed(ctx, apiKey); err != nil {
				slog.Error("failed to update client last_used_at", "error", err, "client", client.Name)
			}
		}()

		slog.Debug("authenticated request", "client", client.Name, "role", client.Role, "key_prefix", client.MaskedApiKey())

		ctx := ContextWithClient(r.Context(), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission returns middleware that checks for specific permission
func (m *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientFromContext(r.Context())
			if client == nil {
				respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			if !client.HasPermission(permission) {
				slog.Warn("permission denied",
					"client", client.Name,
					"required", permission,
					"has", client.Permissions,
				)
				respondError(w, http.StatusForbidden, "permission_denied",
					"client does not have required permission: "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey extracts API key from request headers
func extractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	// browsers cannot set headers on websocket upgrades
	if websocketUpgrade(r) {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// maskKey returns first 8 chars of key for safe logging
func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
