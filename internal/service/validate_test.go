package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terralink-energy/portal-api/internal/adapters/memstore"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/domain/portal"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/token"
)

type validateFixture struct {
	svc         *ValidationService
	tokens      *TokenService
	sessions    *memstore.SessionStore
	appTokens   *memstore.AppTokenStore
	blacklist   *memstore.BlacklistStore
	audit       *memstore.AuditLog
	codec       *token.Codec
	revalidator *fakeRevalidator
	now         time.Time
}

func newValidateFixture(t *testing.T) *validateFixture {
	t.Helper()
	f := &validateFixture{
		sessions:    memstore.NewSessionStore(),
		appTokens:   memstore.NewAppTokenStore(),
		blacklist:   memstore.NewBlacklistStore(),
		audit:       memstore.NewAuditLog(),
		codec:       mustCodec(t),
		revalidator: &fakeRevalidator{result: ports.RevalidationResult{Valid: true}},
		now:         time.Now(),
	}
	f.tokens = NewTokenService(TokenServiceOptions{
		AppTokens: f.appTokens,
		Blacklist: f.blacklist,
		Catalog:   portal.NewCatalog(portal.DefaultApplications()),
		Audit:     f.audit,
	})
	f.svc = NewValidationService(ValidationServiceOptions{
		Sessions:    f.sessions,
		AppTokens:   f.appTokens,
		Blacklist:   f.blacklist,
		Codec:       f.codec,
		Revalidator: f.revalidator,
		Tokens:      f.tokens,
		Audit:       f.audit,
	})
	return f
}

// seedSession stores a live session and returns it with its signed token.
func (f *validateFixture) seedSession(t *testing.T, email string, role domainauth.Role) (domainauth.Session, string) {
	t.Helper()
	sess := domainauth.Session{
		ID: "sess-" + email,
		User: domainauth.User{
			ID: "sub-1", Email: email, Name: "Test User", Role: role,
		},
		Status:            domainauth.SessionActive,
		GoogleToken:       "raw-credential",
		CreatedAt:         f.now,
		LastActivityAt:    f.now,
		LastRevalidatedAt: f.now,
		ValidUntil:        f.now.Add(30 * 24 * time.Hour),
	}
	require.NoError(t, f.sessions.Save(context.Background(), sess))
	signed, err := f.codec.Sign(sess)
	require.NoError(t, err)
	return sess, signed
}

func TestValidate_SessionTokenHappyPath(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	result, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NotNil(t, result.User)
	assert.Equal(t, sess.User, *result.User)
	assert.Nil(t, result.AppToken)
}

func TestValidate_TouchUpdatesActivityOnly(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	before, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)

	after, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ValidUntil, after.ValidUntil)
	assert.Equal(t, domainauth.SessionActive, after.Status)
	assert.True(t, after.LastActivityAt.After(before.LastActivityAt) || after.LastActivityAt.Equal(before.LastActivityAt))
}

func TestValidate_BadTokenRejected(t *testing.T) {
	f := newValidateFixture(t)

	_, err := f.svc.Validate(context.Background(), ValidateRequest{Token: "garbage"})
	assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))

	_, err = f.svc.Validate(context.Background(), ValidateRequest{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidate_BlacklistPropagatesToSessionPath(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	_, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	require.NoError(t, f.blacklist.Add(ctx, domainauth.BlacklistEntry{Email: "user@terralink.example"}))

	_, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestValidate_BlacklistPropagatesToAppTokenPath(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, _ := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	appToken, err := f.tokens.Issue(ctx, IssueInput{Session: sess, AppID: "bess"})
	require.NoError(t, err)

	require.NoError(t, f.blacklist.Add(ctx, domainauth.BlacklistEntry{Email: "user@terralink.example"}))

	_, err = f.svc.Validate(ctx, ValidateRequest{Token: appToken.Token})
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestValidate_AppTokenPath(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, _ := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	appToken, err := f.tokens.Issue(ctx, IssueInput{Session: sess, AppID: "bess"})
	require.NoError(t, err)

	result, err := f.svc.Validate(ctx, ValidateRequest{Token: appToken.Token})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "bess", result.AppID)
	require.NotNil(t, result.User)
	assert.Equal(t, sess.User.Email, result.User.Email)

	// Time-boxed, not single-use: a replay inside the TTL still validates.
	result, err = f.svc.Validate(ctx, ValidateRequest{Token: appToken.Token})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.True(t, f.appTokens.Used(appToken.Token))
}

func TestValidate_ExpiredSessionReported(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()

	sess := domainauth.Session{
		ID:         "sess-exp",
		User:       domainauth.User{ID: "sub-1", Email: "user@terralink.example", Role: domainauth.RoleStandard},
		Status:     domainauth.SessionActive,
		CreatedAt:  f.now.Add(-31 * 24 * time.Hour),
		ValidUntil: f.now.Add(-time.Hour),
	}
	signed, err := f.codec.Sign(sess)
	require.NoError(t, err)

	// A token signed from an expired session fails JWT expiry first.
	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	assert.Equal(t, apperrors.ErrCodeTokenExpired, apperrors.GetCode(err))
}

func TestValidate_RevokedSessionReported(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	_, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	_, err := f.sessions.RevokeAllForEmail(ctx, "user@terralink.example", "admin@terralink.example", "test")
	require.NoError(t, err)

	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	assert.Equal(t, apperrors.ErrCodeSessionRevoked, apperrors.GetCode(err))
}

func TestValidate_MissingSessionNotVivifiedByDefault(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)
	require.NoError(t, f.sessions.Delete(ctx, sess.ID))

	_, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	assert.True(t, apperrors.IsSessionNotFound(err))
}

func TestValidate_AutoVivifyRebuildsSession(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)
	require.NoError(t, f.sessions.Delete(ctx, sess.ID))

	f.svc = NewValidationService(ValidationServiceOptions{
		Sessions: f.sessions, AppTokens: f.appTokens, Blacklist: f.blacklist,
		Codec: f.codec, Revalidator: f.revalidator, Tokens: f.tokens,
		Audit: f.audit, AutoVivifySessions: true,
	})

	result, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	rebuilt, err := f.sessions.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.User.Email, rebuilt.User.Email)
	// The rebuilt record has no provider credential.
	assert.Empty(t, rebuilt.GoogleToken)
}

func TestValidate_SessionCheckMode(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()

	result, err := f.svc.Validate(ctx, ValidateRequest{SessionCheck: true, Email: "clean@terralink.example"})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	require.NoError(t, f.blacklist.Add(ctx, domainauth.BlacklistEntry{Email: "banned@terralink.example"}))
	_, err = f.svc.Validate(ctx, ValidateRequest{SessionCheck: true, Email: "banned@terralink.example"})
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestValidate_InlineAppTokenIssuance(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	_, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	result, err := f.svc.Validate(ctx, ValidateRequest{Token: signed, GenerateAppToken: true, AppID: "bess"})
	require.NoError(t, err)
	require.NotNil(t, result.AppToken)
	assert.Equal(t, "bess", result.AppToken.AppID)

	// The issued token validates on the app-token path.
	inner, err := f.svc.Validate(ctx, ValidateRequest{Token: result.AppToken.Token})
	require.NoError(t, err)
	assert.Equal(t, "bess", inner.AppID)
}

func TestValidate_InlineIssuanceDeniedForDisallowedRole(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	_, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	// standard-user is not on the sales allow-list.
	_, err := f.svc.Validate(ctx, ValidateRequest{Token: signed, GenerateAppToken: true, AppID: "sales"})
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestValidate_RevalidationConfirmedInvalidRevokes(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	// Make revalidation due and the provider reject the identity.
	stale := f.now.Add(-2 * time.Hour)
	require.NoError(t, f.sessions.MarkRevalidated(ctx, sess.ID, stale))
	f.revalidator.result = ports.RevalidationResult{Valid: false, Reason: "provider rejected credential"}

	_, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	assert.Equal(t, apperrors.ErrCodeIdentityRevoked, apperrors.GetCode(err))

	// The session is revoked; the next validation reports session_revoked.
	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	assert.Equal(t, apperrors.ErrCodeSessionRevoked, apperrors.GetCode(err))
}

func TestValidate_RevalidationTransientFailureFailsOpen(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	stale := f.now.Add(-2 * time.Hour)
	require.NoError(t, f.sessions.MarkRevalidated(ctx, sess.ID, stale))
	f.revalidator.err = apperrors.New(apperrors.ErrCodeServiceUnavailable, "tokeninfo unreachable")

	result, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	assert.True(t, result.Valid)

	// Not marked revalidated, so the next request re-checks.
	require.Equal(t, 1, f.revalidator.calls)
	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	assert.Equal(t, 2, f.revalidator.calls)
}

func TestValidate_RevalidationSuccessMarksSession(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, signed := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	stale := f.now.Add(-2 * time.Hour)
	require.NoError(t, f.sessions.MarkRevalidated(ctx, sess.ID, stale))

	_, err := f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	require.Equal(t, 1, f.revalidator.calls)

	// Freshly marked: the immediate next validation skips the provider.
	_, err = f.svc.Validate(ctx, ValidateRequest{Token: signed})
	require.NoError(t, err)
	assert.Equal(t, 1, f.revalidator.calls)
}

// App tokens expire by store TTL: once reclaimed, the opaque value is
// indistinguishable from a malformed session token and reports invalid_token.
func TestValidate_ReclaimedAppTokenReportsInvalidToken(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, _ := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	appToken, err := f.tokens.Issue(ctx, IssueInput{Session: sess, AppID: "bess"})
	require.NoError(t, err)

	// A second gateway whose token store has already reclaimed the entry.
	drained := NewValidationService(ValidationServiceOptions{
		Sessions:    f.sessions,
		AppTokens:   memstore.NewAppTokenStore(),
		Blacklist:   f.blacklist,
		Codec:       f.codec,
		Revalidator: f.revalidator,
		Tokens:      f.tokens,
		Audit:       f.audit,
	})

	_, err = drained.Validate(ctx, ValidateRequest{Token: appToken.Token})
	assert.Equal(t, apperrors.ErrCodeInvalidToken, apperrors.GetCode(err))
}

// A store that still returns the record past its deadline gets the explicit
// expiry reason instead.
func TestValidate_ExpiredAppTokenStillStoredReportsTokenExpired(t *testing.T) {
	f := newValidateFixture(t)
	ctx := context.Background()
	sess, _ := f.seedSession(t, "user@terralink.example", domainauth.RoleStandard)

	appToken, err := f.tokens.Issue(ctx, IssueInput{Session: sess, AppID: "bess"})
	require.NoError(t, err)

	ahead := NewValidationService(ValidationServiceOptions{
		Sessions:    f.sessions,
		AppTokens:   f.appTokens,
		Blacklist:   f.blacklist,
		Codec:       f.codec,
		Revalidator: f.revalidator,
		Tokens:      f.tokens,
		Audit:       f.audit,
		Now:         func() time.Time { return appToken.ExpiresAt.Add(time.Second) },
	})

	_, err = ahead.Validate(ctx, ValidateRequest{Token: appToken.Token})
	assert.True(t, apperrors.IsTokenExpired(err))
}
