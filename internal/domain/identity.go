package domain

import (
	"strings"
	"time"
)

// Roles carried in access-token claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Authentication methods, also used as registration methods.
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
)

// ProviderGoogle is the only federated provider supported today.
const ProviderGoogle = "google"

// Identity is the durable authentication record. It is owned by the
// identity repository and mutated only through the session service.
type Identity struct {
	ID                 int64
	Email              string
	Username           string
	PasswordHash       string // empty for federated-only accounts
	Role               string
	IsLocked           bool
	LockUntil          time.Time // zero when no timed lock is set
	GoogleSubjectID    string
	GoogleEmail        string
	RegistrationMethod string
	IsEmailVerified    bool
	ProfileID          int64
	CreatedAt          time.Time
}

// Profile holds the public-facing attributes, one-to-one with an Identity.
// It is created before its owning identity and referenced by id.
type Profile struct {
	ID        int64
	FirstName string
	LastName  string
	AvatarURL string
	Bio       string
	Location  string
	CreatedIP string
	CreatedAt time.Time
}

// DeviceContext fingerprints the device a login originates from.
type DeviceContext struct {
	IPAddress string
	UserAgent string
	DeviceID  string
}

// DeviceSession is one entry of an identity's active sessions. The store
// guarantees at most one row per (identity, device).
type DeviceSession struct {
	ID           int64     `json:"id"`
	IdentityID   int64     `json:"identity_id"`
	RefreshToken string    `json:"-"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	DeviceID     string    `json:"device_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
}

// PublicUser is the view of an identity that may leave the service.
type PublicUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// PublicView assembles the outward view of an identity and its profile.
func PublicView(identity *Identity, profile *Profile) PublicUser {
	u := PublicUser{
		ID:       identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
	}
	if profile != nil {
		u.FirstName = profile.FirstName
		u.LastName = profile.LastName
		u.AvatarURL = profile.AvatarURL
	}
	return u
}

// IsLockedAt reports whether the identity may authenticate at the given
// instant. A permanent lock or a lock-until in the future both deny access.
func IsLockedAt(identity *Identity, at time.Time) bool {
	if identity.IsLocked {
		return true
	}
	return !identity.LockUntil.IsZero() && identity.LockUntil.After(at)
}

// HasProviderLink reports whether the identity already carries a link for
// the given federated provider.
func HasProviderLink(identity *Identity, provider string) bool {
	if provider == ProviderGoogle {
		return identity.GoogleSubjectID != ""
	}
	return false
}

const maxDerivedUsernameLen = 15

// DeriveUsername builds a deterministic username for a federated sign-up
// that supplied none: the email local part plus the first five characters
// of the provider subject id, capped at 15 characters. The result only
// contains lowercase alphanumerics and underscores.
func DeriveUsername(email, providerSubjectID string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}

	var b strings.Builder
	for _, ch := range strings.ToLower(local) {
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '_' {
			b.WriteRune(ch)
		}
	}

	sub := providerSubjectID
	if len(sub) > 5 {
		sub = sub[:5]
	}

	username := b.String() + sub
	if len(username) > maxDerivedUsernameLen {
		username = username[:maxDerivedUsernameLen]
	}
	if username == "" {
		username = "user" + sub
	}
	return username
}

// FitUsername truncates base so that base+suffix stays within the derived
// username cap, used when disambiguating collisions.
func FitUsername(base, suffix string) string {
	limit := maxDerivedUsernameLen - len(suffix)
	if limit < 1 {
		limit = 1
	}
	if len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}
