package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terralink-energy/portal-api/internal/adapters/memstore"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

type adminFixture struct {
	svc       *AdminService
	sessions  *memstore.SessionStore
	blacklist *memstore.BlacklistStore
	overrides *memstore.RoleOverrideStore
	domains   *memstore.DomainWhitelistStore
	audit     *memstore.AuditLog
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{
		sessions:  memstore.NewSessionStore(),
		blacklist: memstore.NewBlacklistStore(),
		overrides: memstore.NewRoleOverrideStore(),
		domains:   memstore.NewDomainWhitelistStore(),
		audit:     memstore.NewAuditLog(),
	}
	f.svc = NewAdminService(AdminServiceOptions{
		Sessions:  f.sessions,
		Blacklist: f.blacklist,
		Overrides: f.overrides,
		Domains:   f.domains,
		Policy:    testPolicy(),
		Audit:     f.audit,
	})
	return f
}

func (f *adminFixture) seedSession(t *testing.T, id, email string, role domainauth.Role) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.sessions.Save(context.Background(), domainauth.Session{
		ID:         id,
		User:       domainauth.User{ID: "sub-" + id, Email: email, Role: role},
		Status:     domainauth.SessionActive,
		CreatedAt:  now,
		ValidUntil: now.Add(24 * time.Hour),
	}))
}

func adminActor() domainauth.User {
	return domainauth.User{ID: "sub-admin", Email: "admin@terralink.example", Role: domainauth.RoleAdmin}
}

func TestRevoke_BlacklistsAndKillsSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedSession(t, "s1", "user@terralink.example", domainauth.RoleStandard)
	f.seedSession(t, "s2", "user@terralink.example", domainauth.RoleStandard)
	f.seedSession(t, "s3", "other@terralink.example", domainauth.RoleStandard)

	result, err := f.svc.Revoke(ctx, RevokeInput{
		Actor: adminActor(), Email: "User@Terralink.Example", Reason: "policy violation",
	})
	require.NoError(t, err)
	assert.Equal(t, "user@terralink.example", result.Email)
	assert.Equal(t, 2, result.SessionsRevoked)

	revoked, err := f.blacklist.IsRevoked(ctx, "user@terralink.example")
	require.NoError(t, err)
	assert.True(t, revoked)

	sess, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionRevoked, sess.Status)
	assert.Equal(t, "policy violation", sess.RevokedReason)

	untouched, err := f.sessions.Get(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, domainauth.SessionActive, untouched.Status)

	entries, err := f.audit.Recent(ctx, ports.AuditRevocations, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "revoke", entries[0].Action)
	assert.Equal(t, "user@terralink.example", entries[0].Email)
}

func TestRevoke_RequiresAdmin(t *testing.T) {
	f := newAdminFixture(t)
	actor := domainauth.User{Email: "ops@terralink.example", Role: domainauth.RoleOperations}

	_, err := f.svc.Revoke(context.Background(), RevokeInput{Actor: actor, Email: "user@terralink.example"})
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestRevoke_SelfRevocationRejected(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.svc.Revoke(context.Background(), RevokeInput{Actor: adminActor(), Email: "Admin@Terralink.Example"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRevoke_DefaultReason(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.Revoke(ctx, RevokeInput{Actor: adminActor(), Email: "user@terralink.example"})
	require.NoError(t, err)

	entry, found, err := f.blacklist.Get(ctx, "user@terralink.example")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "revoked by administrator", entry.Reason)
	assert.Equal(t, "admin@terralink.example", entry.RevokedBy)
}

func TestCheckEmail(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	result, err := f.svc.CheckEmail(ctx, "clean@terralink.example")
	require.NoError(t, err)
	assert.False(t, result.Revoked)
	assert.Nil(t, result.Entry)

	_, err = f.svc.Revoke(ctx, RevokeInput{Actor: adminActor(), Email: "bad@terralink.example", Reason: "gone"})
	require.NoError(t, err)

	result, err = f.svc.CheckEmail(ctx, "BAD@terralink.example")
	require.NoError(t, err)
	assert.True(t, result.Revoked)
	require.NotNil(t, result.Entry)
	assert.Equal(t, "gone", result.Entry.Reason)

	_, err = f.svc.CheckEmail(ctx, "  ")
	assert.True(t, apperrors.IsValidation(err))
}

func TestListUsers_MergesOverridesAndSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	f.seedSession(t, "s1", "ops@terralink.example", domainauth.RoleOperations)
	f.seedSession(t, "s2", "promoted@terralink.example", domainauth.RoleSales)
	require.NoError(t, f.overrides.Set(ctx, "promoted@terralink.example", domainauth.RoleSales, "admin@terralink.example"))

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Sorted by email.
	assert.Equal(t, "ops@terralink.example", users[0].Email)
	assert.Equal(t, domainauth.RoleOperations, users[0].Role)
	assert.False(t, users[0].Overridden)

	assert.Equal(t, "promoted@terralink.example", users[1].Email)
	assert.Equal(t, domainauth.RoleSales, users[1].Role)
	assert.True(t, users[1].Overridden)
}

func TestUpdateRole_PatchesLiveSessions(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	f.seedSession(t, "s1", "user@terralink.example", domainauth.RoleStandard)

	err := f.svc.UpdateRole(ctx, adminActor(), "user@terralink.example", domainauth.RoleOperations)
	require.NoError(t, err)

	role, found, err := f.overrides.Get(ctx, "user@terralink.example")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domainauth.RoleOperations, role)

	sess, err := f.sessions.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleOperations, sess.User.Role)
}

func TestUpdateRole_Validation(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	err := f.svc.UpdateRole(ctx, adminActor(), "user@terralink.example", domainauth.Role("superuser"))
	assert.True(t, apperrors.IsValidation(err))

	ops := domainauth.User{Email: "ops@terralink.example", Role: domainauth.RoleOperations}
	err = f.svc.UpdateRole(ctx, ops, "user@terralink.example", domainauth.RoleStandard)
	assert.True(t, apperrors.IsAccessDenied(err))
}

func TestDomainWhitelist_Admin(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	actor := adminActor()

	require.NoError(t, f.svc.AddDomain(ctx, actor, "partner.example"))

	domains, err := f.svc.ListDomains(ctx)
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "partner.example", domains[0].Domain)
	assert.Equal(t, actor.Email, domains[0].AddedBy)

	err = f.svc.AddDomain(ctx, actor, "partner.example")
	assert.True(t, apperrors.IsConflict(err))

	require.NoError(t, f.svc.RemoveDomain(ctx, actor, "partner.example"))
	err = f.svc.RemoveDomain(ctx, actor, "partner.example")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRemoveDomain_OwnDomainRejected(t *testing.T) {
	f := newAdminFixture(t)

	err := f.svc.RemoveDomain(context.Background(), adminActor(), "terralink.example")
	assert.True(t, apperrors.IsValidation(err))
}

func TestRecentAudit_CategoryValidation(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.Revoke(ctx, RevokeInput{Actor: adminActor(), Email: "user@terralink.example"})
	require.NoError(t, err)

	entries, err := f.svc.RecentAudit(ctx, ports.AuditRevocations, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = f.svc.RecentAudit(ctx, ports.AuditCategory("bogus"), 10)
	assert.True(t, apperrors.IsValidation(err))
}
