package middleware

import (
	"context"
	"net/http"

	"github.com/adityanagar10/buzzline/backend/internal/service/session"
	"github.com/adityanagar10/buzzline/backend/pkg/auth"
	"github.com/adityanagar10/buzzline/backend/pkg/httputil"
)

type ctxKey int

const (
	identityIDKey ctxKey = iota
	claimsKey
	deviceKey
)

// RequireAuth wraps the next handler and gates it on the access verifier:
// signature check plus session-cache comparison.
func RequireAuth(verifier *session.AccessVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := httputil.BearerFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := verifier.VerifyAccess(r.Context(), token)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		identityID, err := claims.IdentityID()
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityIDKey, identityID)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// IdentityIDFromRequest returns the authenticated identity id set by
// RequireAuth.
func IdentityIDFromRequest(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(identityIDKey).(int64)
	return id, ok
}

// ClaimsFromRequest returns the verified access claims set by RequireAuth.
func ClaimsFromRequest(r *http.Request) (*auth.AccessClaims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*auth.AccessClaims)
	return claims, ok
}
