package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/sipbridge/internal/auth"
	"github.com/dukerupert/sipbridge/internal/store"
)

// RequireToken validates the bearer token and populates TokenContext.
// The token is read from the Authorization header ("Bearer <token>") or,
// failing that, the access_token query parameter.
func RequireToken(tokens *store.TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := bearerToken(r)
			if secret == "" {
				unauthorized(w, "missing access token")
				return
			}

			tok, err := tokens.GetBySecret(secret)
			if err != nil || tok == nil {
				unauthorized(w, "invalid access token")
				return
			}

			tc := auth.TokenContext{
				TokenID: tok.ID,
				Name:    tok.Name,
				Scope:   tok.Scope,
			}

			ctx := auth.WithToken(r.Context(), tc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope checks that the request's token covers the given scope.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.HasScope(r.Context(), scope) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "insufficient scope"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(h[len("Bearer "):])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
