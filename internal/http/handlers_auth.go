// Package httpx provides the HTTP surface of the portal API.
package httpx

import (
	"net/http"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/obs"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/service"
)

// AuthHandlers provides HTTP handlers for sign-in and sign-out.
type AuthHandlers struct {
	Svc          *service.AuthService
	CookieDomain string
}

type loginRequest struct {
	GoogleToken string `json:"googleToken"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirectUri"`
}

type loginResponse struct {
	SessionToken string          `json:"sessionToken"`
	User         domainauth.User `json:"user"`
	ExpiresIn    int64           `json:"expiresIn"`
}

// Login handles POST /auth/login. The body carries either a Google ID token
// or an authorization code plus the redirect URI it was issued for.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	cred := ports.Credential{IDToken: req.GoogleToken, Code: req.Code, RedirectURI: req.RedirectURI}
	if cred.IDToken == "" && cred.Code == "" {
		WriteAppError(w, apperrors.Validation("googleToken or code is required"))
		return
	}

	result, err := h.Svc.Login(r.Context(), service.LoginInput{
		Credential: cred,
		IP:         clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		obs.RecordLogin(false)
		WriteAppError(w, err)
		return
	}
	obs.RecordLogin(true)

	h.setSessionCookie(w, result.SessionToken, result.ExpiresIn)
	WriteJSON(w, http.StatusOK, loginResponse{
		SessionToken: result.SessionToken,
		User:         result.Session.User,
		ExpiresIn:    int64(result.ExpiresIn.Seconds()),
	})
}

// Logout handles POST /auth/logout. It is a no-op when no session is
// presented; logging out twice is not an error.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if bearer := bearerToken(r); bearer != "" {
		if sess, err := h.Svc.Authenticate(r.Context(), bearer); err == nil {
			sessionID = sess.ID
		}
	}

	if err := h.Svc.Logout(r.Context(), sessionID, clientIP(r), r.UserAgent()); err != nil {
		WriteAppError(w, err)
		return
	}

	h.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type sessionResponse struct {
	Authenticated bool             `json:"authenticated"`
	User          *domainauth.User `json:"user,omitempty"`
}

// Session handles GET /auth/session, the browser's cookie-based probe.
// An absent or stale session is a 200 with authenticated=false, not an error.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	bearer := bearerToken(r)
	if bearer == "" {
		WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	sess, err := h.Svc.Authenticate(r.Context(), bearer)
	if err != nil {
		WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: false})
		return
	}

	user := sess.User
	WriteJSON(w, http.StatusOK, sessionResponse{Authenticated: true, User: &user})
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
