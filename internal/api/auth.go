package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// authMiddleware verifies the HS256 bearer token and puts its subject
// claim into the context as the owner ID. Token issuance is someone
// else's job; this server only verifies.
func authMiddleware(secret []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization: Bearer token required")
				return
			}

			claims := &jwt.RegisteredClaims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil {
				logger.Debug("rejected bearer token", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}
			if claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyOwner, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}

// requireOwner resolves the authenticated owner. Requests carrying a
// legacy user_id query parameter that names someone else get a 403
// without revealing anything about that user's data.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := ownerFromContext(r.Context())
	if !ok || owner == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
		return "", false
	}
	if claimed := r.URL.Query().Get("user_id"); claimed != "" && claimed != owner {
		writeError(w, http.StatusForbidden, "permission_denied", "cannot act on another user's data")
		return "", false
	}
	return owner, true
}
