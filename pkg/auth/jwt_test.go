package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
)

func testIssuer(accessTTL time.Duration) *Issuer {
	return NewIssuer(IssuerConfig{
		Secret:     "test-secret",
		AccessTTL:  accessTTL,
		RefreshTTL: 30 * 24 * time.Hour,
	})
}

func testIdentity() *domain.Identity {
	return &domain.Identity{
		ID:       42,
		Username: "ada_l",
		Role:     domain.RoleUser,
	}
}

func TestIssueAndParseAccessToken(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)
	profile := &domain.Profile{ID: 9, FirstName: "Ada", LastName: "Lovelace", AvatarURL: "https://cdn.example.com/a.png"}

	token, err := issuer.IssueAccessToken(testIdentity(), profile)
	require.NoError(t, err)

	claims, err := issuer.ParseAccessToken(token)
	require.NoError(t, err)

	identityID, err := claims.IdentityID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), identityID)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, "ada_l", claims.Username)
	assert.Equal(t, int64(9), claims.Profile.ID)
	assert.Equal(t, "Ada", claims.Profile.FirstName)
}

func TestIssueAccessToken_NilProfile(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)

	token, err := issuer.IssueAccessToken(testIdentity(), nil)
	require.NoError(t, err)

	claims, err := issuer.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Profile.FirstName)
}

func TestIssueAndParseRefreshToken(t *testing.T) {
	issuer := testIssuer(15 * time.Minute)

	first, err := issuer.IssueRefreshToken(testIdentity())
	require.NoError(t, err)
	second, err := issuer.IssueRefreshToken(testIdentity())
	require.NoError(t, err)

	claims, err := issuer.ParseRefreshToken(first)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	otherClaims, err := issuer.ParseRefreshToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, claims.ID, otherClaims.ID)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	token, err := testIssuer(15 * time.Minute).IssueAccessToken(testIdentity(), nil)
	require.NoError(t, err)

	other := NewIssuer(IssuerConfig{Secret: "other-secret", AccessTTL: 15 * time.Minute})
	_, err = other.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestParseAccessToken_Expired(t *testing.T) {
	issuer := testIssuer(-time.Minute)
	token, err := issuer.IssueAccessToken(testIdentity(), nil)
	require.NoError(t, err)

	_, err = issuer.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	_, err := testIssuer(15 * time.Minute).ParseAccessToken("not.a.jwt")
	assert.Error(t, err)
}

func TestAccessClaimsIdentityID_BadSubject(t *testing.T) {
	claims := &AccessClaims{}
	claims.Subject = "not-a-number"
	_, err := claims.IdentityID()
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims.Subject = "-3"
	_, err = claims.IdentityID()
	assert.ErrorIs(t, err, ErrInvalidToken)
}
