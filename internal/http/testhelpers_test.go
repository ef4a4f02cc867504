package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/terralink-energy/portal-api/internal/adapters/devauth"
	"github.com/terralink-energy/portal-api/internal/adapters/memstore"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/domain/portal"
	"github.com/terralink-energy/portal-api/internal/policy"
	"github.com/terralink-energy/portal-api/internal/service"
	"github.com/terralink-energy/portal-api/internal/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type routerFixture struct {
	handler   http.Handler
	sessions  *memstore.SessionStore
	appTokens *memstore.AppTokenStore
	blacklist *memstore.BlacklistStore
	audit     *memstore.AuditLog
	activity  *memstore.ActivityStore
	codec     *token.Codec
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	codec, err := token.NewCodec(testSecret)
	require.NoError(t, err)

	verifier, err := devauth.NewVerifier(devauth.Config{
		SubjectID: "dev-sub",
		Email:     "user@terralink.example",
		Name:      "Dev User",
	})
	require.NoError(t, err)

	engine := policy.NewEngine(policy.Config{
		AllowedDomains: []string{"terralink.example"},
		AdminEmails:    []string{"admin@terralink.example"},
	})
	catalog := portal.NewCatalog(portal.DefaultApplications())

	f := &routerFixture{
		sessions:  memstore.NewSessionStore(),
		appTokens: memstore.NewAppTokenStore(),
		blacklist: memstore.NewBlacklistStore(),
		audit:     memstore.NewAuditLog(),
		activity:  memstore.NewActivityStore(),
		codec:     codec,
	}

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Verifier:  verifier,
		Policy:    engine,
		Overrides: memstore.NewRoleOverrideStore(),
		Domains:   memstore.NewDomainWhitelistStore(),
		Blacklist: f.blacklist,
		Sessions:  f.sessions,
		Codec:     codec,
		Audit:     f.audit,
	})
	tokenSvc := service.NewTokenService(service.TokenServiceOptions{
		AppTokens: f.appTokens,
		Blacklist: f.blacklist,
		Catalog:   catalog,
		Audit:     f.audit,
	})
	validationSvc := service.NewValidationService(service.ValidationServiceOptions{
		Sessions:  f.sessions,
		AppTokens: f.appTokens,
		Blacklist: f.blacklist,
		Codec:     codec,
		Tokens:    tokenSvc,
		Audit:     f.audit,
	})
	adminSvc := service.NewAdminService(service.AdminServiceOptions{
		Sessions:  f.sessions,
		Blacklist: f.blacklist,
		Overrides: memstore.NewRoleOverrideStore(),
		Domains:   memstore.NewDomainWhitelistStore(),
		Policy:    engine,
		Audit:     f.audit,
	})
	activitySvc := service.NewActivityService(service.ActivityServiceOptions{
		Store:   f.activity,
		Catalog: catalog,
	})

	f.handler = NewRouter(RouterServices{
		Auth:       authSvc,
		Validation: validationSvc,
		Tokens:     tokenSvc,
		Admin:      adminSvc,
		Activity:   activitySvc,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// seedToken stores a live session for the email and returns its bearer token.
func (f *routerFixture) seedToken(t *testing.T, email string, role domainauth.Role) string {
	t.Helper()
	now := time.Now()
	sess := domainauth.Session{
		ID:         "sess-" + email,
		User:       domainauth.User{ID: "sub-" + email, Email: email, Name: "Test User", Role: role},
		Status:     domainauth.SessionActive,
		CreatedAt:  now,
		ValidUntil: now.Add(24 * time.Hour),
	}
	require.NoError(t, f.sessions.Save(context.Background(), sess))

	signed, err := f.codec.Sign(sess)
	require.NoError(t, err)
	return signed
}

type doParams struct {
	method string
	path   string
	body   any
	bearer string
}

func (f *routerFixture) do(t *testing.T, p doParams) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if p.body != nil {
		raw, err := json.Marshal(p.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(p.method, p.path, reader)
	if p.body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if p.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+p.bearer)
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst))
}
