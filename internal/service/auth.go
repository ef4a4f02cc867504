package service

// Package service orchestrates the portal's flows: login, validation, app
// token issuance, revocation, and admin operations. Services coordinate
// ports and stay free of HTTP concerns.

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/policy"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/token"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Verifier  ports.CredentialVerifier
	Policy    *policy.Engine
	Overrides ports.RoleOverrideStore    // optional
	Domains   ports.DomainWhitelistStore // optional
	Blacklist ports.BlacklistStore
	Sessions  ports.SessionStore
	Codec     *token.Codec
	Audit     ports.AuditLog

	SessionDuration time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

// AuthService handles sign-in and sign-out.
type AuthService struct {
	verifier  ports.CredentialVerifier
	policy    *policy.Engine
	overrides ports.RoleOverrideStore
	domains   ports.DomainWhitelistStore
	blacklist ports.BlacklistStore
	sessions  ports.SessionStore
	codec     *token.Codec
	audit     *auditor

	sessionDuration time.Duration
	now             func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	s := &AuthService{
		verifier:        opts.Verifier,
		policy:          opts.Policy,
		overrides:       opts.Overrides,
		domains:         opts.Domains,
		blacklist:       opts.Blacklist,
		sessions:        opts.Sessions,
		codec:           opts.Codec,
		audit:           newAuditor(opts.Audit, opts.Logger),
		sessionDuration: opts.SessionDuration,
		now:             opts.Now,
	}
	if s.sessionDuration <= 0 {
		s.sessionDuration = 30 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// LoginInput groups parameters for a login attempt.
type LoginInput struct {
	Credential ports.Credential
	IP         string
	UserAgent  string
}

// LoginResult is a completed sign-in.
type LoginResult struct {
	SessionToken string
	Session      domainauth.Session
	ExpiresIn    time.Duration
}

// Login verifies the provider credential, applies the access policy, and
// creates a session with a signed bearer token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	identity, err := s.verifier.Verify(ctx, input.Credential)
	if err != nil {
		s.audit.append(ctx, ports.AuditLogins, domainauth.AuditEntry{
			Action: "login", Success: false,
			Detail: string(apperrors.GetCode(err)), IP: input.IP, UserAgent: input.UserAgent,
		})
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))

	revoked, err := s.blacklist.IsRevoked(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	if revoked {
		s.audit.append(ctx, ports.AuditLogins, domainauth.AuditEntry{
			Action: "login", Email: email, Success: false,
			Detail: "access revoked", IP: input.IP, UserAgent: input.UserAgent,
		})
		return nil, apperrors.AccessDenied("access has been revoked")
	}

	allowed, err := s.domainAllowed(ctx, policy.DomainOf(email))
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.append(ctx, ports.AuditLogins, domainauth.AuditEntry{
			Action: "login", Email: email, Success: false,
			Detail: "domain not allowed", IP: input.IP, UserAgent: input.UserAgent,
		})
		return nil, apperrors.New(apperrors.ErrCodeDomainNotAllowed, "email domain is not allowed")
	}

	role, err := s.resolveRole(ctx, email)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := domainauth.Session{
		ID: uuid.NewString(),
		User: domainauth.User{
			ID:      identity.SubjectID,
			Email:   email,
			Name:    identity.Name,
			Picture: identity.PictureURL,
			Role:    role,
		},
		Status:         domainauth.SessionActive,
		GoogleToken:    identity.RawCredential,
		CreatedAt:      now,
		LastActivityAt: now,
		ValidUntil:     now.Add(s.sessionDuration),
	}

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, apperrors.Wrap(saveErr, apperrors.ErrCodeInternal, "save session")
	}

	signed, err := s.codec.Sign(session)
	if err != nil {
		return nil, err
	}

	s.audit.append(ctx, ports.AuditLogins, domainauth.AuditEntry{
		Action: "login", Email: email, Success: true,
		Detail: string(role), IP: input.IP, UserAgent: input.UserAgent,
	})

	return &LoginResult{
		SessionToken: signed,
		Session:      session,
		ExpiresIn:    s.sessionDuration,
	}, nil
}

// GetSession loads a live session by ID.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (domainauth.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domainauth.Session{}, err
	}
	if !sess.Active(s.now()) {
		return domainauth.Session{}, apperrors.New(apperrors.ErrCodeSessionRevoked, "session is no longer active")
	}
	return sess, nil
}

// Authenticate verifies a bearer session token and loads its backing
// session. Used by the HTTP middleware to gate protected routes.
func (s *AuthService) Authenticate(ctx context.Context, bearer string) (domainauth.Session, error) {
	claims, err := s.codec.Verify(bearer)
	if err != nil {
		return domainauth.Session{}, err
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.Email)
	if err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	if revoked {
		return domainauth.Session{}, apperrors.AccessDenied("access has been revoked")
	}

	return s.GetSession(ctx, claims.SessionID)
}

// Logout deletes the session. Missing sessions are not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID, ip, userAgent string) error {
	if sessionID == "" {
		return nil
	}

	email := ""
	if sess, err := s.sessions.Get(ctx, sessionID); err == nil {
		email = sess.User.Email
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "delete session")
	}

	s.audit.append(ctx, ports.AuditLogins, domainauth.AuditEntry{
		Action: "logout", Email: email, Success: true, IP: ip, UserAgent: userAgent,
	})
	return nil
}

// domainAllowed checks the static allow-list first, then the runtime
// whitelist when one is configured.
func (s *AuthService) domainAllowed(ctx context.Context, domain string) (bool, error) {
	if domain == "" {
		return false, nil
	}
	if s.policy.DomainAllowed(domain) {
		return true, nil
	}
	if s.domains == nil {
		return false, nil
	}
	ok, err := s.domains.Contains(ctx, domain)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check domain whitelist")
	}
	return ok, nil
}

// resolveRole applies the runtime override first, then the static policy.
func (s *AuthService) resolveRole(ctx context.Context, email string) (domainauth.Role, error) {
	if s.overrides != nil {
		role, found, err := s.overrides.Get(ctx, email)
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "look up role override")
		}
		if found {
			return role, nil
		}
	}
	return s.policy.RoleFor(email), nil
}
