package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

func TestLogin_ReturnsTokenAndCookie(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{"googleToken": "dev-credential"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionToken string          `json:"sessionToken"`
		User         domainauth.User `json:"user"`
		ExpiresIn    int64           `json:"expiresIn"`
	}
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.SessionToken)
	assert.Equal(t, "user@terralink.example", resp.User.Email)
	assert.Equal(t, domainauth.RoleStandard, resp.User.Role)
	assert.Equal(t, int64(30*24*60*60), resp.ExpiresIn)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, resp.SessionToken, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestLogin_MissingCredential(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   map[string]string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSession_ProbeWithBearerAndCookie(t *testing.T) {
	f := newRouterFixture(t)
	bearer := f.seedToken(t, "user@terralink.example", domainauth.RoleStandard)

	w := f.do(t, doParams{method: http.MethodGet, path: "/auth/session", bearer: bearer})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Authenticated bool             `json:"authenticated"`
		User          *domainauth.User `json:"user"`
	}
	decodeBody(t, w, &resp)
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.User)
	assert.Equal(t, "user@terralink.example", resp.User.Email)
}

func TestSession_ProbeUnauthenticated(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{method: http.MethodGet, path: "/auth/session"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	decodeBody(t, w, &resp)
	assert.False(t, resp.Authenticated)

	w = f.do(t, doParams{method: http.MethodGet, path: "/auth/session", bearer: "garbage"})
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.False(t, resp.Authenticated)
}

func TestLogout_DeletesSessionAndClearsCookie(t *testing.T) {
	f := newRouterFixture(t)
	bearer := f.seedToken(t, "user@terralink.example", domainauth.RoleStandard)

	w := f.do(t, doParams{method: http.MethodPost, path: "/auth/logout", bearer: bearer})
	require.Equal(t, http.StatusOK, w.Code)

	var cleared *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	// The session is gone; the probe now reports unauthenticated.
	w = f.do(t, doParams{method: http.MethodGet, path: "/auth/session", bearer: bearer})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Authenticated bool `json:"authenticated"`
	}
	decodeBody(t, w, &resp)
	assert.False(t, resp.Authenticated)
}

func TestLogout_WithoutSessionIsNoop(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{method: http.MethodPost, path: "/auth/logout"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
