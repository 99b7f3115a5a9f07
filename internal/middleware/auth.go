// Package middleware hosts authentication, logging, and rate limiting middleware.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"afr/internal/auth"
)

// contextKey avoids collisions when storing values in request contexts.
type contextKey string

const ctxPartyKey contextKey = "party"

// AuthMiddleware resolves the X-API-Key header against the party
// store and injects the authenticated Party into the context.
type AuthMiddleware struct {
	service *auth.Service
}

func NewAuthMiddleware(service *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{service: service}
}

// Authenticate requires a valid X-API-Key and injects the resolved
// Party into the request context; absent/unknown/revoked keys fail
// with 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := r.Header.Get("X-API-Key")
		party, err := m.service.Authenticate(rawKey)
		if err != nil {
			respondJSONError(w, http.StatusUnauthorized, "missing or invalid API key")
			return
		}

		ctx := context.WithValue(r.Context(), ctxPartyKey, party)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to parties holding one of the given
// roles: no key means 401, a wrong role means 403. Must run after
// Authenticate.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			party, ok := PartyFromContext(r.Context())
			if !ok {
				respondJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !allowed[party.Role] {
				respondJSONError(w, http.StatusForbidden, "role not permitted for this endpoint")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PartyFromContext extracts the authenticated Party from the request context.
func PartyFromContext(ctx context.Context) (auth.Party, bool) {
	party, ok := ctx.Value(ctxPartyKey).(auth.Party)
	return party, ok
}

func respondJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// CORS allows only local development origins (http://localhost and
// http://127.0.0.1); the allow-list is fixed and not configurable
// (a JSON API with no browser-session requirement beyond local tooling).
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "http://127.0.0.1")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
