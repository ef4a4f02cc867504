package httpx

import (
	"net/http"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/obs"
	"github.com/terralink-energy/portal-api/internal/service"
)

// ValidateHandlers provides the gateway endpoints downstream applications
// call to check tokens and exchange session tokens for app tokens.
type ValidateHandlers struct {
	Validation *service.ValidationService
	Tokens     *service.TokenService
	Auth       *service.AuthService
}

type validateRequest struct {
	Token            string `json:"token"`
	Email            string `json:"email"`
	SessionCheck     bool   `json:"sessionCheck"`
	GenerateAppToken bool   `json:"generateAppToken"`
	AppID            string `json:"appId"`
}

// Validate handles POST /auth/validate.
func (h *ValidateHandlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Validation.Validate(r.Context(), service.ValidateRequest{
		Token:            req.Token,
		Email:            req.Email,
		SessionCheck:     req.SessionCheck,
		GenerateAppToken: req.GenerateAppToken,
		AppID:            req.AppID,
		IP:               clientIP(r),
		UserAgent:        r.UserAgent(),
	})
	if err != nil {
		obs.RecordValidation(false)
		WriteAppError(w, err)
		return
	}
	obs.RecordValidation(true)

	WriteJSON(w, http.StatusOK, result)
}

type appTokenRequest struct {
	AppID string `json:"appId"`
}

type appTokenResponse struct {
	AppToken  string          `json:"appToken"`
	AppID     string          `json:"appId"`
	User      domainauth.User `json:"user"`
	ExpiresAt int64           `json:"expiresAt"`
}

// AppToken handles POST /auth/app-token: a session bearer token plus an app
// id buys a short-lived per-application access token.
func (h *ValidateHandlers) AppToken(w http.ResponseWriter, r *http.Request) {
	bearer := bearerToken(r)
	if bearer == "" {
		WriteAppError(w, apperrors.New(apperrors.ErrCodeInvalidToken, "session token is required"))
		return
	}

	sess, err := h.Auth.Authenticate(r.Context(), bearer)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	var req appTokenRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.AppID == "" {
		WriteAppError(w, apperrors.ValidationField("appId", "application id is required"))
		return
	}

	token, err := h.Tokens.Issue(r.Context(), service.IssueInput{
		Session:   sess,
		AppID:     req.AppID,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	obs.RecordAppToken(token.AppID)

	WriteJSON(w, http.StatusOK, appTokenResponse{
		AppToken:  token.Token,
		AppID:     token.AppID,
		User:      token.User,
		ExpiresAt: token.ExpiresAt.Unix(),
	})
}
