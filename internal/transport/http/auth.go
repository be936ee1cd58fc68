package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/adityanagar10/buzzline/backend/internal/domain"
	"github.com/adityanagar10/buzzline/backend/internal/service/session"
	"github.com/adityanagar10/buzzline/backend/internal/transport/http/middleware"
	"github.com/adityanagar10/buzzline/backend/pkg/httputil"
)

// AuthHandler exposes the session service over HTTP. The refresh token
// travels as an http-only cookie; the access token rides in the body.
type AuthHandler struct {
	Service      *session.Service
	RefreshTTL   time.Duration
	CookieSecure bool
}

func NewAuthHandler(service *session.Service, refreshTTL time.Duration, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		Service:      service,
		RefreshTTL:   refreshTTL,
		CookieSecure: cookieSecure,
	}
}

type loginResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

func (h *AuthHandler) respondLogin(w http.ResponseWriter, status int, result *session.LoginResult) {
	httputil.SetRefreshCookie(w, result.RefreshToken, h.RefreshTTL, h.CookieSecure)
	writeJSON(w, status, loginResponse{Token: result.AccessToken, User: result.User})
}

// Register handles password sign-up.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Username  string `json:"username"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindValidation, "invalid input"))
		return
	}

	result, err := h.Service.SignUpWithPassword(r.Context(), session.SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
	}, middleware.DeviceFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.respondLogin(w, http.StatusCreated, result)
}

// Login handles password sign-in by email or username, exactly one.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindValidation, "invalid input"))
		return
	}

	var identifier string
	switch {
	case req.Email != "" && req.Username != "":
		writeError(w, domain.E(domain.KindValidation, "provide either email or username, not both"))
		return
	case req.Email != "":
		identifier = req.Email
	case req.Username != "":
		identifier = req.Username
	default:
		writeError(w, domain.E(domain.KindValidation, "email or username is required"))
		return
	}

	result, err := h.Service.SignInWithPassword(r.Context(), identifier, req.Password, middleware.DeviceFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.respondLogin(w, http.StatusOK, result)
}

// GoogleAuth handles token-based federated sign-in-or-up: the client
// obtained a Google ID token itself and posts it here.
func (h *AuthHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindValidation, "invalid input"))
		return
	}

	result, err := h.Service.SignInOrUpWithGoogle(r.Context(), req.Token, middleware.DeviceFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.respondLogin(w, http.StatusOK, result)
}

// Logout removes this device's session and clears the refresh cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityIDFromRequest(r)
	if !ok {
		writeError(w, domain.E(domain.KindUnauthorized, "unauthorized"))
		return
	}

	device := middleware.DeviceFromRequest(r)
	if err := h.Service.SignOut(r.Context(), identityID, device.DeviceID); err != nil {
		writeError(w, err)
		return
	}

	httputil.ClearRefreshCookie(w, h.CookieSecure)
	writeJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

// LinkAccount links a federated identity to the authenticated account.
func (h *AuthHandler) LinkAccount(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityIDFromRequest(r)
	if !ok {
		writeError(w, domain.E(domain.KindUnauthorized, "unauthorized"))
		return
	}

	var req struct {
		Token    string `json:"token"`
		LinkWith string `json:"link_with"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.E(domain.KindValidation, "invalid input"))
		return
	}
	if req.Token == "" || req.LinkWith == "" {
		writeError(w, domain.E(domain.KindValidation, "token and link_with are required"))
		return
	}

	if err := h.Service.LinkAccount(r.Context(), identityID, req.LinkWith, req.Token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"linked": true})
}

// Me returns the authenticated identity's view straight from the
// verified claims.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromRequest(r)
	if !ok {
		writeError(w, domain.E(domain.KindUnauthorized, "unauthorized"))
		return
	}
	identityID, _ := middleware.IdentityIDFromRequest(r)

	writeJSON(w, http.StatusOK, domain.PublicUser{
		ID:        identityID,
		Username:  claims.Username,
		FirstName: claims.Profile.FirstName,
		LastName:  claims.Profile.LastName,
		AvatarURL: claims.Profile.AvatarURL,
	})
}

// Sessions lists the identity's active device sessions.
func (h *AuthHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityIDFromRequest(r)
	if !ok {
		writeError(w, domain.E(domain.KindUnauthorized, "unauthorized"))
		return
	}

	sessions, err := h.Service.ActiveSessions(r.Context(), identityID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// LoginHistory lists the identity's recent login attempts within the
// retention window.
func (h *AuthHandler) LoginHistory(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityIDFromRequest(r)
	if !ok {
		writeError(w, domain.E(domain.KindUnauthorized, "unauthorized"))
		return
	}

	records, err := h.Service.LoginHistory(r.Context(), identityID, 20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
