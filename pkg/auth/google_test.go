package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "test-client-id.apps.googleusercontent.com"

var testJWKSecret = []byte("jwks-stand-in-secret")

func testKeyfunc(_ *jwt.Token) (interface{}, error) {
	return testJWKSecret, nil
}

func signGoogleToken(t *testing.T, mutate func(*googleIDClaims)) string {
	t.Helper()
	claims := &googleIDClaims{
		Email:         "grace@example.com",
		EmailVerified: true,
		GivenName:     "Grace",
		FamilyName:    "Hopper",
		Picture:       "https://lh3.example.com/photo.jpg",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "1089321774820218",
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	if mutate != nil {
		mutate(claims)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testJWKSecret)
	require.NoError(t, err)
	return signed
}

func TestGoogleVerify(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	claims, err := verifier.Verify(context.Background(), signGoogleToken(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "1089321774820218", claims.Subject)
	assert.Equal(t, "grace@example.com", claims.Email)
	assert.Equal(t, "Grace", claims.FirstName)
	assert.Equal(t, "Hopper", claims.LastName)
	assert.Equal(t, "https://lh3.example.com/photo.jpg", claims.AvatarURL)
}

func TestGoogleVerify_AlternateIssuerForm(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	token := signGoogleToken(t, func(c *googleIDClaims) { c.Issuer = "accounts.google.com" })
	_, err := verifier.Verify(context.Background(), token)
	assert.NoError(t, err)
}

func TestGoogleVerify_WrongAudience(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	token := signGoogleToken(t, func(c *googleIDClaims) {
		c.Audience = jwt.ClaimStrings{"someone-else.apps.googleusercontent.com"}
	})
	_, err := verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestGoogleVerify_Expired(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	token := signGoogleToken(t, func(c *googleIDClaims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	})
	_, err := verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestGoogleVerify_MissingExpiry(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	token := signGoogleToken(t, func(c *googleIDClaims) { c.ExpiresAt = nil })
	_, err := verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestGoogleVerify_UnexpectedIssuer(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	token := signGoogleToken(t, func(c *googleIDClaims) { c.Issuer = "https://evil.example.com" })
	_, err := verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestGoogleVerify_MissingSubjectOrEmail(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, testKeyfunc)

	token := signGoogleToken(t, func(c *googleIDClaims) { c.Subject = "" })
	_, err := verifier.Verify(context.Background(), token)
	assert.Error(t, err)

	token = signGoogleToken(t, func(c *googleIDClaims) { c.Email = "" })
	_, err = verifier.Verify(context.Background(), token)
	assert.Error(t, err)
}

func TestGoogleVerify_BadSignature(t *testing.T) {
	verifier := NewGoogleVerifierWithKeyfunc(testClientID, func(*jwt.Token) (interface{}, error) {
		return []byte("a different keyset"), nil
	})

	_, err := verifier.Verify(context.Background(), signGoogleToken(t, nil))
	assert.Error(t, err)
}
