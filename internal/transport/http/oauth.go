package http

import (
	"log"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/adityanagar10/buzzline/backend/internal/config"
	"github.com/adityanagar10/buzzline/backend/internal/service/session"
	"github.com/adityanagar10/buzzline/backend/internal/transport/http/middleware"
	"github.com/adityanagar10/buzzline/backend/pkg/auth"
	"github.com/adityanagar10/buzzline/backend/pkg/httputil"
)

const oauthStateCookie = "oauth_state"

// OAuthHandler drives the browser redirect variant of Google sign-in.
// The token-post variant lives on AuthHandler.GoogleAuth.
type OAuthHandler struct {
	Service      *session.Service
	OAuth        *config.OAuthConfig
	FrontendURL  string
	RefreshTTL   time.Duration
	CookieSecure bool
}

func NewOAuthHandler(service *session.Service, oauthCfg *config.OAuthConfig, frontendURL string, refreshTTL time.Duration, cookieSecure bool) *OAuthHandler {
	return &OAuthHandler{
		Service:      service,
		OAuth:        oauthCfg,
		FrontendURL:  frontendURL,
		RefreshTTL:   refreshTTL,
		CookieSecure: cookieSecure,
	}
}

// GoogleLogin starts the redirect flow: mint a state nonce, stash it in
// a short-lived cookie and send the browser to Google.
func (h *OAuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateToken()
	if err != nil {
		log.Printf("[OAUTH] Failed to generate state token: %v", err)
		h.redirectError(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.OAuth.GoogleLoginConfig.AuthCodeURL(state)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallback completes the redirect flow: check the state nonce,
// exchange the code, hand the ID token to the session service and send
// the browser back to the frontend with the refresh cookie set.
func (h *OAuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		log.Printf("[OAUTH] State mismatch on google callback")
		h.redirectError(w, r)
		return
	}

	// The state nonce is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		log.Printf("[OAUTH] Missing code on google callback")
		h.redirectError(w, r)
		return
	}

	token, err := h.OAuth.GoogleLoginConfig.Exchange(r.Context(), code, oauth2.AccessTypeOffline)
	if err != nil {
		log.Printf("[OAUTH] Code exchange failed: %v", err)
		h.redirectError(w, r)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		log.Printf("[OAUTH] Token response carried no id_token")
		h.redirectError(w, r)
		return
	}

	result, err := h.Service.SignInOrUpWithGoogle(r.Context(), rawIDToken, middleware.DeviceFromRequest(r))
	if err != nil {
		log.Printf("[OAUTH] Google sign-in failed: %v", err)
		h.redirectError(w, r)
		return
	}

	httputil.SetRefreshCookie(w, result.RefreshToken, h.RefreshTTL, h.CookieSecure)
	http.Redirect(w, r, h.FrontendURL+"/auth/callback", http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) redirectError(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.FrontendURL+"/login?error=auth_failed", http.StatusTemporaryRedirect)
}
