package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

// ProfileClaims is the profile snapshot embedded in access tokens.
type ProfileClaims struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// AccessClaims are the claims of a short-lived access token. The subject
// is the identity id.
type AccessClaims struct {
	Role     string        `json:"role"`
	Username string        `json:"username"`
	Profile  ProfileClaims `json:"profile"`
	jwt.RegisteredClaims
}

// IdentityID parses the token subject back into an identity id.
func (c *AccessClaims) IdentityID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// RefreshClaims are the minimal claims of a long-lived refresh token:
// subject plus a random token id.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// IssuerConfig carries the signing material and lifetimes for both token
// kinds.
type IssuerConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer mints and parses the service's own HS256 tokens. Tokens are
// self-contained; access-token validity is additionally gated by the
// session cache.
type Issuer struct {
	cfg IssuerConfig
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{cfg: cfg}
}

// IssueAccessToken creates a short-lived access token embedding the
// identity's role, username and profile snapshot.
func (i *Issuer) IssueAccessToken(identity *domain.Identity, profile *domain.Profile) (string, error) {
	now := time.Now()
	claims := &AccessClaims{
		Role:     identity.Role,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if profile != nil {
		claims.Profile = ProfileClaims{
			ID:        profile.ID,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			AvatarURL: profile.AvatarURL,
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.cfg.Secret))
}

// IssueRefreshToken creates a long-lived refresh token holding only the
// subject and a random token id.
func (i *Issuer) IssueRefreshToken(identity *domain.Identity) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.ID, 10),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(i.cfg.Secret))
}

// ParseAccessToken validates signature and expiry of an access token and
// returns its claims.
func (i *Issuer) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, i.keyFunc)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*AccessClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ParseRefreshToken validates signature and expiry of a refresh token and
// returns its claims.
func (i *Issuer) ParseRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, i.keyFunc)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*RefreshClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (i *Issuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("invalid signing method")
	}
	return []byte(i.cfg.Secret), nil
}
