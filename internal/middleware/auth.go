package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"statsync/internal/db"
	"statsync/internal/models"
)

// AuthMiddleware resolves the request's bearer API token to a stored user.
// The authenticated user is the sole source of identity downstream; there is
// no fallback user.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Authorization header format must be 'Bearer <token>'", http.StatusUnauthorized)
			return
		}

		user, err := db.GetUserByAPIToken(parts[1])
		if err != nil {
			log.Printf("Invalid API token: %v", err)
			http.Error(w, "Invalid API token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), models.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
