package httputil

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	RefreshCookieName = "refresh_token"
	AccessCookieName  = "access_token"
)

// SetRefreshCookie stores the refresh token as a same-site, http-only
// cookie, secure in production.
func SetRefreshCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRefreshCookie removes the refresh cookie on sign-out.
func ClearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RefreshTokenFromRequest extracts the refresh token cookie.
func RefreshTokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return "", errors.New("refresh cookie not found")
	}
	return cookie.Value, nil
}

// BearerFromRequest extracts the access token from the Authorization
// header, falling back to the access cookie for browser clients that
// cannot set headers (e.g. WebSocket upgrades).
func BearerFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer "), nil
		}
		return authHeader, nil
	}

	cookie, err := r.Cookie(AccessCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", errors.New("no access token found in header or cookie")
}
