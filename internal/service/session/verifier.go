package session

import (
	"context"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
	"github.com/adityanagar10/buzzline/backend/pkg/auth"
)

// AccessVerifier is the per-request gate. It combines the stateless
// signature check with the cache comparison that gives the otherwise
// self-contained access tokens centralized revocation.
type AccessVerifier struct {
	issuer *auth.Issuer
	cache  TokenCache
}

func NewAccessVerifier(issuer *auth.Issuer, cache TokenCache) *AccessVerifier {
	return &AccessVerifier{issuer: issuer, cache: cache}
}

// VerifyAccess validates a bearer token. The token must carry a valid
// signature and expiry, AND match the identity's cached token exactly;
// a login from another device or a sign-out clears or replaces the slot
// and fails the second check.
func (v *AccessVerifier) VerifyAccess(ctx context.Context, bearerToken string) (*auth.AccessClaims, error) {
	claims, err := v.issuer.ParseAccessToken(bearerToken)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidToken, "invalid access token", err)
	}

	identityID, err := claims.IdentityID()
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidToken, "invalid access token", err)
	}

	cached, err := v.cache.GetAccessToken(ctx, identityID)
	if err != nil {
		return nil, domain.Wrap(domain.KindUnavailable, "session cache unavailable", err)
	}
	if cached == "" || cached != bearerToken {
		return nil, domain.E(domain.KindTokenMismatch, "token didn't match")
	}

	return claims, nil
}
