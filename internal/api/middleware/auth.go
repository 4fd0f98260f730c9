package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/dom/kaf-catalog/internal/domain"
	"go.uber.org/zap"
)

type contextKey string

const (
	IdentityKey contextKey = "identity"
)

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	ValidateToken(token string) (domain.Identity, error)
}

// Auth rejects requests without a valid bearer token with 401 and stores
// the verified identity in the request context.
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Authorization header required")
				return
			}

			token, ok := BearerToken(authHeader)
			if !ok {
				logger.Debug("[middleware.Auth] invalid authorization header format")
				writeUnauthorized(w, "Invalid authorization header")
				return
			}

			identity, err := verifier.ValidateToken(token)
			if err != nil {
				logger.Debug("[middleware.Auth] token validation failed", zap.Error(err))
				writeUnauthorized(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
