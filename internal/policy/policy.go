package policy

// Package policy decides whether an email may sign in and which role it gets.
// The Engine is a pure function of static configuration and its input; the
// service layer layers runtime domain whitelist entries and admin role
// overrides on top.

import (
	"strings"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
)

// Decision is the outcome of an authorization check. When Allowed is false no
// role is assigned and the caller must treat the result as a hard denial.
type Decision struct {
	Allowed bool
	Role    domainauth.Role
}

// Config holds the static policy inputs, already normalized to lower case.
type Config struct {
	AllowedDomains []string
	AdminEmails    []string
	// RoleMap maps email -> role name for explicit per-email assignments.
	RoleMap map[string]string
}

// Engine evaluates the static access policy.
type Engine struct {
	domains map[string]bool
	admins  map[string]bool
	roles   map[string]domainauth.Role
}

// NewEngine builds an Engine from static configuration. Unknown role names in
// the role map are dropped rather than granted.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		domains: make(map[string]bool, len(cfg.AllowedDomains)),
		admins:  make(map[string]bool, len(cfg.AdminEmails)),
		roles:   make(map[string]domainauth.Role, len(cfg.RoleMap)),
	}
	for _, d := range cfg.AllowedDomains {
		if d = normalize(d); d != "" {
			e.domains[d] = true
		}
	}
	for _, a := range cfg.AdminEmails {
		if a = normalize(a); a != "" {
			e.admins[a] = true
		}
	}
	for email, roleName := range cfg.RoleMap {
		role := domainauth.Role(normalize(roleName))
		if domainauth.ValidRole(role) {
			e.roles[normalize(email)] = role
		}
	}
	return e
}

// DomainOf extracts the lower-cased domain suffix of an email address.
// Returns "" when the address has no domain part.
func DomainOf(email string) string {
	email = normalize(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// DomainAllowed reports whether the domain is in the static allow-list.
func (e *Engine) DomainAllowed(domain string) bool {
	return e.domains[normalize(domain)]
}

// RoleFor resolves the static role for an allowed email: explicit per-email
// mapping, then admin-email list, then the lowest-privilege default.
func (e *Engine) RoleFor(email string) domainauth.Role {
	email = normalize(email)
	if role, ok := e.roles[email]; ok {
		return role
	}
	if e.admins[email] {
		return domainauth.RoleAdmin
	}
	return domainauth.RoleStandard
}

// Authorize applies the static policy to an email.
func (e *Engine) Authorize(email string) Decision {
	domain := DomainOf(email)
	if domain == "" || !e.domains[domain] {
		return Decision{}
	}
	return Decision{Allowed: true, Role: e.RoleFor(email)}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
