package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/domain/portal"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

// appTokenBytes is the entropy of an app token before encoding.
const appTokenBytes = 32

// TokenServiceOptions groups dependencies for TokenService.
type TokenServiceOptions struct {
	AppTokens ports.AppTokenStore
	Blacklist ports.BlacklistStore
	Catalog   *portal.Catalog
	Audit     ports.AuditLog

	TokenDuration time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// TokenService issues short-lived per-application access tokens.
type TokenService struct {
	appTokens ports.AppTokenStore
	blacklist ports.BlacklistStore
	catalog   *portal.Catalog
	audit     *auditor

	tokenDuration time.Duration
	now           func() time.Time
}

// NewTokenService constructs a new TokenService.
func NewTokenService(opts TokenServiceOptions) *TokenService {
	s := &TokenService{
		appTokens:     opts.AppTokens,
		blacklist:     opts.Blacklist,
		catalog:       opts.Catalog,
		audit:         newAuditor(opts.Audit, opts.Logger),
		tokenDuration: opts.TokenDuration,
		now:           opts.Now,
	}
	if s.tokenDuration <= 0 {
		s.tokenDuration = 5 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IssueInput groups parameters for an app token request.
type IssueInput struct {
	Session   domainauth.Session
	AppID     string
	IP        string
	UserAgent string
}

// Issue checks the session against the application's role allow-list and
// mints a fresh token. Every call issues a new token; concurrent live tokens
// for the same user and app are allowed.
func (s *TokenService) Issue(ctx context.Context, input IssueInput) (domainauth.AppToken, error) {
	sess := input.Session
	now := s.now()

	if sess.Expired(now) {
		return domainauth.AppToken{}, apperrors.New(apperrors.ErrCodeTokenExpired, "session has expired")
	}
	if sess.Status != domainauth.SessionActive {
		return domainauth.AppToken{}, apperrors.New(apperrors.ErrCodeSessionRevoked, "session has been revoked")
	}

	revoked, err := s.blacklist.IsRevoked(ctx, sess.User.Email)
	if err != nil {
		return domainauth.AppToken{}, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	if revoked {
		return domainauth.AppToken{}, apperrors.AccessDenied("access has been revoked")
	}

	app, ok := s.catalog.Lookup(input.AppID)
	if !ok {
		return domainauth.AppToken{}, apperrors.Newf(apperrors.ErrCodeNotFound, "unknown application %q", input.AppID)
	}
	if !app.AllowsRole(sess.User.Role) {
		s.audit.append(ctx, ports.AuditValidations, domainauth.AuditEntry{
			Action: "app_token_denied", Email: sess.User.Email, Success: false,
			Detail: fmt.Sprintf("role %s not allowed for app %s", sess.User.Role, app.ID),
			IP:     input.IP, UserAgent: input.UserAgent,
		})
		return domainauth.AppToken{}, apperrors.AccessDenied("role is not allowed to access this application")
	}

	value, err := newAppTokenValue()
	if err != nil {
		return domainauth.AppToken{}, err
	}

	token := domainauth.AppToken{
		Token:     value,
		User:      sess.User,
		AppID:     app.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenDuration),
	}
	if saveErr := s.appTokens.Save(ctx, token); saveErr != nil {
		return domainauth.AppToken{}, apperrors.Wrap(saveErr, apperrors.ErrCodeInternal, "save app token")
	}

	s.audit.append(ctx, ports.AuditValidations, domainauth.AuditEntry{
		Action: "app_token_issued", Email: sess.User.Email, Success: true,
		Detail: app.ID, IP: input.IP, UserAgent: input.UserAgent,
	})
	return token, nil
}

// newAppTokenValue returns a URL-safe token with appTokenBytes of entropy.
func newAppTokenValue() (string, error) {
	buf := make([]byte, appTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate app token")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
