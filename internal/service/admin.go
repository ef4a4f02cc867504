package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/policy"
	"github.com/terralink-energy/portal-api/internal/ports"
)

// AdminServiceOptions groups dependencies for AdminService.
type AdminServiceOptions struct {
	Sessions  ports.SessionStore
	Blacklist ports.BlacklistStore
	Overrides ports.RoleOverrideStore    // optional
	Domains   ports.DomainWhitelistStore // optional
	Policy    *policy.Engine
	Audit     ports.AuditLog

	Logger *slog.Logger
	Now    func() time.Time
}

// AdminService implements the admin console operations: revocation, user
// role management, the runtime domain whitelist, and audit reads.
type AdminService struct {
	sessions  ports.SessionStore
	blacklist ports.BlacklistStore
	overrides ports.RoleOverrideStore
	domains   ports.DomainWhitelistStore
	policy    *policy.Engine
	auditLog  ports.AuditLog
	audit     *auditor

	now func() time.Time
}

// NewAdminService constructs a new AdminService.
func NewAdminService(opts AdminServiceOptions) *AdminService {
	s := &AdminService{
		sessions:  opts.Sessions,
		blacklist: opts.Blacklist,
		overrides: opts.Overrides,
		domains:   opts.Domains,
		policy:    opts.Policy,
		auditLog:  opts.Audit,
		audit:     newAuditor(opts.Audit, opts.Logger),
		now:       opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RevokeInput groups parameters for an access revocation.
type RevokeInput struct {
	Actor     domainauth.User
	Email     string
	Reason    string
	IP        string
	UserAgent string
}

// RevokeResult reports the effect of a revocation.
type RevokeResult struct {
	Email           string `json:"email"`
	SessionsRevoked int    `json:"sessionsRevoked"`
}

// Revoke blacklists the email and revokes all its live sessions. Admins
// cannot revoke themselves.
func (s *AdminService) Revoke(ctx context.Context, input RevokeInput) (*RevokeResult, error) {
	if input.Actor.Role != domainauth.RoleAdmin {
		return nil, apperrors.AccessDenied("admin role required")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}
	if email == strings.ToLower(input.Actor.Email) {
		return nil, apperrors.Validation("admins cannot revoke their own access")
	}

	reason := input.Reason
	if reason == "" {
		reason = "revoked by administrator"
	}

	entry := domainauth.BlacklistEntry{
		Email:     email,
		Reason:    reason,
		RevokedBy: input.Actor.Email,
		RevokedAt: s.now(),
	}
	if err := s.blacklist.Add(ctx, entry); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "add blacklist entry")
	}

	revoked, err := s.sessions.RevokeAllForEmail(ctx, email, input.Actor.Email, reason)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "revoke sessions")
	}

	s.audit.append(ctx, ports.AuditRevocations, domainauth.AuditEntry{
		Action: "revoke", Email: email, Success: true,
		Detail: reason + " (by " + input.Actor.Email + ")",
		IP:     input.IP, UserAgent: input.UserAgent,
	})

	return &RevokeResult{Email: email, SessionsRevoked: revoked}, nil
}

// CheckResult is the outcome of a blacklist probe.
type CheckResult struct {
	Email   string                     `json:"email"`
	Revoked bool                       `json:"revoked"`
	Entry   *domainauth.BlacklistEntry `json:"entry,omitempty"`
}

// CheckEmail reports whether an email is blacklisted.
func (s *AdminService) CheckEmail(ctx context.Context, email string) (*CheckResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}

	entry, found, err := s.blacklist.Get(ctx, email)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "check revocation list")
	}
	result := &CheckResult{Email: email, Revoked: found}
	if found {
		result.Entry = &entry
	}
	return result, nil
}

// UserSummary is one known portal user.
type UserSummary struct {
	Email      string          `json:"email"`
	Role       domainauth.Role `json:"role"`
	Overridden bool            `json:"overridden"`
}

// ListUsers returns the union of users with role overrides and users with
// live sessions, with their effective roles.
func (s *AdminService) ListUsers(ctx context.Context) ([]UserSummary, error) {
	roles := make(map[string]UserSummary)

	if s.overrides != nil {
		overrides, err := s.overrides.List(ctx)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "list role overrides")
		}
		for email, role := range overrides {
			roles[email] = UserSummary{Email: email, Role: role, Overridden: true}
		}
	}

	emails, err := s.sessions.ListEmails(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeServiceUnavailable, "list session emails")
	}
	for _, email := range emails {
		if _, seen := roles[email]; seen {
			continue
		}
		roles[email] = UserSummary{Email: email, Role: s.policy.RoleFor(email)}
	}

	users := make([]UserSummary, 0, len(roles))
	for _, u := range roles {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// UpdateRole sets a role override and patches every live session for the
// email so the change takes effect immediately.
func (s *AdminService) UpdateRole(ctx context.Context, actor domainauth.User, email string, role domainauth.Role) error {
	if actor.Role != domainauth.RoleAdmin {
		return apperrors.AccessDenied("admin role required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.Validation("email is required")
	}
	if !domainauth.ValidRole(role) {
		return apperrors.ValidationField("role", "unknown role")
	}
	if s.overrides == nil {
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "role overrides are not configured")
	}

	if err := s.overrides.Set(ctx, email, role, actor.Email); err != nil {
		return err
	}
	if _, err := s.sessions.PatchRole(ctx, email, role); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "patch live sessions")
	}
	return nil
}

// ListDomains returns the runtime domain whitelist.
func (s *AdminService) ListDomains(ctx context.Context) ([]ports.DomainWhitelistEntry, error) {
	if s.domains == nil {
		return nil, nil
	}
	return s.domains.List(ctx)
}

// AddDomain adds a domain to the runtime whitelist.
func (s *AdminService) AddDomain(ctx context.Context, actor domainauth.User, domain string) error {
	if actor.Role != domainauth.RoleAdmin {
		return apperrors.AccessDenied("admin role required")
	}
	if s.domains == nil {
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "domain whitelist is not configured")
	}
	return s.domains.Add(ctx, ports.DomainWhitelistEntry{
		Domain:  domain,
		AddedBy: actor.Email,
		AddedAt: s.now(),
	})
}

// RemoveDomain removes a domain from the runtime whitelist. Admins cannot
// remove their own email domain.
func (s *AdminService) RemoveDomain(ctx context.Context, actor domainauth.User, domain string) error {
	if actor.Role != domainauth.RoleAdmin {
		return apperrors.AccessDenied("admin role required")
	}
	if s.domains == nil {
		return apperrors.New(apperrors.ErrCodeServiceUnavailable, "domain whitelist is not configured")
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == policy.DomainOf(actor.Email) {
		return apperrors.Validation("admins cannot remove their own domain")
	}
	return s.domains.Remove(ctx, domain)
}

// RecentAudit returns recent audit entries for a category, newest first.
func (s *AdminService) RecentAudit(ctx context.Context, category ports.AuditCategory, limit int) ([]domainauth.AuditEntry, error) {
	switch category {
	case ports.AuditLogins, ports.AuditValidations, ports.AuditRevocations:
	default:
		return nil, apperrors.ValidationField("category", "unknown audit category")
	}
	return s.auditLog.Recent(ctx, category, limit)
}
