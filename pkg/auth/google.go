package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

// Google issues tokens with either issuer form.
var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// FederatedClaims are the canonical claims extracted from a verified
// provider identity assertion.
type FederatedClaims struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	AvatarURL string
}

type googleIDClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// GoogleVerifier validates Google ID tokens against Google's published
// signing keys and the configured OAuth client id (audience).
type GoogleVerifier struct {
	clientID string
	keys     jwt.Keyfunc
	jwks     *keyfunc.JWKS
}

// NewGoogleVerifier fetches Google's JWKS and keeps it refreshed in the
// background until ctx is cancelled.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	jwks, err := keyfunc.Get(googleJWKSURL, keyfunc.Options{
		Ctx:             ctx,
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			// keyfunc keeps serving the last good keyset on refresh failure
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google JWKS: %w", err)
	}
	return &GoogleVerifier{clientID: clientID, keys: jwks.Keyfunc, jwks: jwks}, nil
}

// NewGoogleVerifierWithKeyfunc builds a verifier with a caller-supplied
// key function, used in tests.
func NewGoogleVerifierWithKeyfunc(clientID string, keys jwt.Keyfunc) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, keys: keys}
}

// Verify checks signature, audience and expiry of a raw Google ID token
// and extracts the canonical identity claims.
func (v *GoogleVerifier) Verify(_ context.Context, rawToken string) (*FederatedClaims, error) {
	token, err := jwt.ParseWithClaims(rawToken, &googleIDClaims{}, v.keys,
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("google token verification failed: %w", err)
	}

	claims, ok := token.Claims.(*googleIDClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !issuedByGoogle(claims.Issuer) {
		return nil, errors.New("google token verification failed: unexpected issuer")
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New("google token verification failed: missing subject or email")
	}

	return &FederatedClaims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		FirstName: claims.GivenName,
		LastName:  claims.FamilyName,
		AvatarURL: claims.Picture,
	}, nil
}

func issuedByGoogle(issuer string) bool {
	for _, iss := range googleIssuers {
		if issuer == iss {
			return true
		}
	}
	return false
}
