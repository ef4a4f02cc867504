package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/token"
)

// ValidationServiceOptions groups dependencies for ValidationService.
type ValidationServiceOptions struct {
	Sessions    ports.SessionStore
	AppTokens   ports.AppTokenStore
	Blacklist   ports.BlacklistStore
	Codec       *token.Codec
	Revalidator ports.IdentityRevalidator // optional
	Tokens      *TokenService             // optional, enables inline app token issuance
	Audit       ports.AuditLog

	RevalidationInterval time.Duration
	AutoVivifySessions   bool
	SessionDuration      time.Duration
	Logger               *slog.Logger
	Now                  func() time.Time
}

// ValidationService is the gateway every downstream application calls to
// check a presented token.
type ValidationService struct {
	sessions    ports.SessionStore
	appTokens   ports.AppTokenStore
	blacklist   ports.BlacklistStore
	codec       *token.Codec
	revalidator ports.IdentityRevalidator
	tokens      *TokenService
	audit       *auditor
	logger      *slog.Logger

	revalidationInterval time.Duration
	autoVivify           bool
	sessionDuration      time.Duration
	now                  func() time.Time
}

// NewValidationService constructs a new ValidationService.
func NewValidationService(opts ValidationServiceOptions) *ValidationService {
	s := &ValidationService{
		sessions:             opts.Sessions,
		appTokens:            opts.AppTokens,
		blacklist:            opts.Blacklist,
		codec:                opts.Codec,
		revalidator:          opts.Revalidator,
		tokens:               opts.Tokens,
		audit:                newAuditor(opts.Audit, opts.Logger),
		logger:               opts.Logger,
		revalidationInterval: opts.RevalidationInterval,
		autoVivify:           opts.AutoVivifySessions,
		sessionDuration:      opts.SessionDuration,
		now:                  opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.revalidationInterval <= 0 {
		s.revalidationInterval = time.Hour
	}
	if s.sessionDuration <= 0 {
		s.sessionDuration = 30 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ValidateRequest is a tagged validation request. Exactly one mode applies,
// resolved in order: SessionCheck, app token lookup, session token.
type ValidateRequest struct {
	Token            string
	Email            string
	SessionCheck     bool
	GenerateAppToken bool
	AppID            string
	IP               string
	UserAgent        string
}

// ValidateResult is a successful validation outcome.
type ValidateResult struct {
	Valid     bool                 `json:"valid"`
	User      *domainauth.User     `json:"user,omitempty"`
	AppID     string               `json:"appId,omitempty"`
	AppToken  *domainauth.AppToken `json:"appToken,omitempty"`
	ExpiresAt time.Time            `json:"expiresAt,omitzero"`
}

// Validate resolves the request mode and checks the presented credential.
// Failures return coded errors; the caller maps them to HTTP statuses.
func (s *ValidationService) Validate(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	if req.SessionCheck && req.Email != "" {
		return s.validateEmailOnly(ctx, req)
	}
	if req.Token == "" {
		return nil, apperrors.Validation("token is required")
	}

	// App tokens are opaque random strings; if the store knows the value it
	// is an app token, otherwise treat it as a session bearer token.
	appToken, found, err := s.appTokens.Get(ctx, req.Token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "look up app token")
	}
	if found {
		return s.validateAppToken(ctx, appToken, req)
	}
	return s.validateSessionToken(ctx, req)
}

// validateEmailOnly answers the lightweight "is this identity still welcome"
// probe without touching any session state.
func (s *ValidationService) validateEmailOnly(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	revoked, err := s.blacklist.IsRevoked(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	if revoked {
		s.auditValidation(ctx, req, email, false, "access revoked")
		return nil, apperrors.AccessDenied("access has been revoked")
	}

	s.auditValidation(ctx, req, email, true, "session check")
	return &ValidateResult{Valid: true}, nil
}

func (s *ValidationService) validateAppToken(ctx context.Context, tok domainauth.AppToken, req ValidateRequest) (*ValidateResult, error) {
	now := s.now()
	if tok.Expired(now) {
		s.auditValidation(ctx, req, tok.User.Email, false, "app token expired")
		return nil, apperrors.New(apperrors.ErrCodeTokenExpired, "app token has expired")
	}

	revoked, err := s.blacklist.IsRevoked(ctx, tok.User.Email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	if revoked {
		s.auditValidation(ctx, req, tok.User.Email, false, "access revoked")
		return nil, apperrors.AccessDenied("access has been revoked")
	}

	// Best-effort usage marker; tokens stay valid for their full lifetime.
	if markErr := s.appTokens.MarkUsed(ctx, tok, now); markErr != nil {
		s.logger.WarnContext(ctx, "mark app token used failed", "app_id", tok.AppID, "err", markErr)
	}

	s.auditValidation(ctx, req, tok.User.Email, true, "app token for "+tok.AppID)
	user := tok.User
	return &ValidateResult{Valid: true, User: &user, AppID: tok.AppID, ExpiresAt: tok.ExpiresAt}, nil
}

func (s *ValidationService) validateSessionToken(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	claims, err := s.codec.Verify(req.Token)
	if err != nil {
		s.auditValidation(ctx, req, claims.Email, false, string(apperrors.GetCode(err)))
		return nil, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.Email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	if revoked {
		s.auditValidation(ctx, req, claims.Email, false, "access revoked")
		return nil, apperrors.AccessDenied("access has been revoked")
	}

	sess, err := s.loadSession(ctx, claims)
	if err != nil {
		s.auditValidation(ctx, req, claims.Email, false, string(apperrors.GetCode(err)))
		return nil, err
	}

	now := s.now()
	if sess.Status != domainauth.SessionActive {
		s.auditValidation(ctx, req, claims.Email, false, "session revoked")
		return nil, apperrors.New(apperrors.ErrCodeSessionRevoked, "session has been revoked")
	}
	if sess.Expired(now) {
		s.auditValidation(ctx, req, claims.Email, false, "session expired")
		return nil, apperrors.New(apperrors.ErrCodeTokenExpired, "session has expired")
	}

	if revalidateErr := s.maybeRevalidate(ctx, &sess, req); revalidateErr != nil {
		return nil, revalidateErr
	}

	if touchErr := s.sessions.Touch(ctx, sess.ID, now); touchErr != nil {
		s.logger.WarnContext(ctx, "session touch failed", "session_id", sess.ID, "err", touchErr)
	}

	result := &ValidateResult{Valid: true, ExpiresAt: sess.ValidUntil}
	user := sess.User
	result.User = &user

	if req.GenerateAppToken && req.AppID != "" && s.tokens != nil {
		appToken, issueErr := s.tokens.Issue(ctx, IssueInput{
			Session: sess, AppID: req.AppID, IP: req.IP, UserAgent: req.UserAgent,
		})
		if issueErr != nil {
			return nil, issueErr
		}
		result.AppToken = &appToken
		result.AppID = appToken.AppID
	}

	s.auditValidation(ctx, req, sess.User.Email, true, "session token")
	return result, nil
}

// loadSession fetches the session behind the claims, optionally recreating
// it from the verified claims when the store lost the record.
func (s *ValidationService) loadSession(ctx context.Context, claims token.Claims) (domainauth.Session, error) {
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err == nil {
		return sess, nil
	}
	if !apperrors.IsSessionNotFound(err) || !s.autoVivify {
		return domainauth.Session{}, err
	}

	// Dev-mode resilience: the signed claims are trusted to rebuild the
	// record. The rebuilt session has no stored provider credential, so it
	// is never revalidated against the provider.
	now := s.now()
	sess = domainauth.Session{
		ID:                claims.SessionID,
		User:              claims.User(),
		Status:            domainauth.SessionActive,
		CreatedAt:         now,
		LastActivityAt:    now,
		LastRevalidatedAt: now,
		ValidUntil:        claims.ExpiresAtTime(),
	}
	if sess.ValidUntil.IsZero() {
		sess.ValidUntil = now.Add(s.sessionDuration)
	}
	if saveErr := s.sessions.Save(ctx, sess); saveErr != nil {
		return domainauth.Session{}, apperrors.Wrap(saveErr, apperrors.ErrCodeInternal, "recreate session")
	}
	s.logger.InfoContext(ctx, "session recreated from token claims", "session_id", sess.ID, "email", sess.User.Email)
	return sess, nil
}

// maybeRevalidate re-checks the stored provider credential when the
// revalidation interval has elapsed. Provider-confirmed invalidation revokes
// every session for the identity; transient failures are skipped.
func (s *ValidationService) maybeRevalidate(ctx context.Context, sess *domainauth.Session, req ValidateRequest) error {
	if s.revalidator == nil || sess.GoogleToken == "" {
		return nil
	}

	now := s.now()
	last := sess.LastRevalidatedAt
	if last.IsZero() {
		last = sess.CreatedAt
	}
	if now.Sub(last) < s.revalidationInterval {
		return nil
	}

	result, err := s.revalidator.Revalidate(ctx, sess.GoogleToken)
	if err != nil {
		// Transient provider failure: fail open, try again next request.
		s.logger.WarnContext(ctx, "identity revalidation unavailable", "email", sess.User.Email, "err", err)
		return nil
	}
	if result.Valid {
		if markErr := s.sessions.MarkRevalidated(ctx, sess.ID, now); markErr != nil {
			s.logger.WarnContext(ctx, "mark revalidated failed", "session_id", sess.ID, "err", markErr)
		}
		sess.LastRevalidatedAt = now
		return nil
	}

	if _, revokeErr := s.sessions.RevokeAllForEmail(ctx, sess.User.Email, "system:revalidation", result.Reason); revokeErr != nil {
		s.logger.ErrorContext(ctx, "revoke after failed revalidation", "email", sess.User.Email, "err", revokeErr)
	}
	s.auditValidation(ctx, req, sess.User.Email, false, "identity revoked: "+result.Reason)
	return apperrors.New(apperrors.ErrCodeIdentityRevoked, "identity is no longer valid with the provider")
}

func (s *ValidationService) auditValidation(ctx context.Context, req ValidateRequest, email string, success bool, detail string) {
	s.audit.append(ctx, ports.AuditValidations, domainauth.AuditEntry{
		Action: "validate", Email: email, Success: success, Detail: detail,
		IP: req.IP, UserAgent: req.UserAgent,
	})
}
