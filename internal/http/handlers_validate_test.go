package httpx

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

func TestValidateEndpoint_SessionToken(t *testing.T) {
	f := newRouterFixture(t)
	bearer := f.seedToken(t, "user@terralink.example", domainauth.RoleStandard)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/validate",
		body:   map[string]any{"token": bearer},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid bool             `json:"valid"`
		User  *domainauth.User `json:"user"`
	}
	decodeBody(t, w, &resp)
	assert.True(t, resp.Valid)
	require.NotNil(t, resp.User)
	assert.Equal(t, "user@terralink.example", resp.User.Email)
}

func TestValidateEndpoint_BadToken(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/validate",
		body:   map[string]any{"token": "garbage"},
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "invalid_token", resp["error"])
}

func TestValidateEndpoint_SessionCheck(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/validate",
		body:   map[string]any{"sessionCheck": true, "email": "clean@terralink.example"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	// No session is involved, so no expiry field should appear.
	assert.NotContains(t, w.Body.String(), "expiresAt")

	require.NoError(t, f.blacklist.Add(context.Background(), domainauth.BlacklistEntry{
		Email: "banned@terralink.example",
	}))
	w = f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/validate",
		body:   map[string]any{"sessionCheck": true, "email": "banned@terralink.example"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "access_denied", resp["error"])
}

func TestAppTokenEndpoint_IssueAndValidate(t *testing.T) {
	f := newRouterFixture(t)
	bearer := f.seedToken(t, "user@terralink.example", domainauth.RoleStandard)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/app-token",
		body:   map[string]string{"appId": "bess"},
		bearer: bearer,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AppToken string          `json:"appToken"`
		AppID    string          `json:"appId"`
		User     domainauth.User `json:"user"`
	}
	decodeBody(t, w, &resp)
	assert.NotEmpty(t, resp.AppToken)
	assert.Equal(t, "bess", resp.AppID)
	assert.Equal(t, "user@terralink.example", resp.User.Email)

	// The issued token round-trips through the gateway.
	w = f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/validate",
		body:   map[string]any{"token": resp.AppToken},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var validation struct {
		Valid bool   `json:"valid"`
		AppID string `json:"appId"`
	}
	decodeBody(t, w, &validation)
	assert.True(t, validation.Valid)
	assert.Equal(t, "bess", validation.AppID)
}

func TestAppTokenEndpoint_RoleDenied(t *testing.T) {
	f := newRouterFixture(t)
	bearer := f.seedToken(t, "user@terralink.example", domainauth.RoleStandard)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/app-token",
		body:   map[string]string{"appId": "sales"},
		bearer: bearer,
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "access_denied", resp["error"])
}

func TestAppTokenEndpoint_RequiresSession(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, doParams{
		method: http.MethodPost,
		path:   "/auth/app-token",
		body:   map[string]string{"appId": "bess"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
