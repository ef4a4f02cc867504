// Package devseed populates a development database with a small set of
// portal fixtures: an admin role override, a partner domain, and some
// activity history so the admin console has data to show.
package devseed

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/terralink-energy/portal-api/internal/data"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/domain/portal"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/service"
)

// Seeder bundles the repositories needed for development seeding.
type Seeder struct {
	overrides *data.RoleOverrideRepo
	domains   *data.DomainWhitelistRepo
	activity  *service.ActivityService
}

// New constructs a Seeder using the provided DB.
func New(db *sql.DB) Seeder {
	return Seeder{
		overrides: data.NewRoleOverrideRepo(db),
		domains:   data.NewDomainWhitelistRepo(db),
		activity: service.NewActivityService(service.ActivityServiceOptions{
			Store:   data.NewActivityRepo(db),
			Catalog: portal.NewCatalog(portal.DefaultApplications()),
		}),
	}
}

const seedActor = "devseed"

// Run executes the development seeding workflow. Seeding is idempotent:
// entries that already exist are left alone.
func Run(ctx context.Context, s Seeder, logger *slog.Logger) error {
	if err := s.seedRoles(ctx, logger); err != nil {
		return err
	}
	if err := s.seedDomains(ctx, logger); err != nil {
		return err
	}
	s.seedActivity(ctx, logger)
	return nil
}

func (s Seeder) seedRoles(ctx context.Context, logger *slog.Logger) error {
	roles := map[string]domainauth.Role{
		"admin@terralink.dev": domainauth.RoleAdmin,
		"ops@terralink.dev":   domainauth.RoleOperations,
	}
	for email, role := range roles {
		if _, found, err := s.overrides.Get(ctx, email); err != nil {
			return err
		} else if found {
			continue
		}
		if err := s.overrides.Set(ctx, email, role, seedActor); err != nil {
			return err
		}
		logger.InfoContext(ctx, "seeded role override", "email", email, "role", role)
	}
	return nil
}

func (s Seeder) seedDomains(ctx context.Context, logger *slog.Logger) error {
	for _, domain := range []string{"terralink.dev", "partner.terralink.dev"} {
		err := s.domains.Add(ctx, ports.DomainWhitelistEntry{Domain: domain, AddedBy: seedActor})
		if err != nil {
			if apperrors.IsConflict(err) {
				continue
			}
			return err
		}
		logger.InfoContext(ctx, "seeded whitelist domain", "domain", domain)
	}
	return nil
}

// seedActivity records sample usage events. Best effort; activity history
// is cosmetic in dev.
func (s Seeder) seedActivity(ctx context.Context, logger *slog.Logger) {
	events := []service.TrackInput{
		{
			User:   domainauth.User{ID: "seed-ops", Email: "ops@terralink.dev", Role: domainauth.RoleOperations},
			AppID:  "bess",
			Action: "open",
		},
		{
			User:     domainauth.User{ID: "seed-ops", Email: "ops@terralink.dev", Role: domainauth.RoleOperations},
			AppID:    "om-dashboard",
			Action:   "open",
			Metadata: map[string]any{"referrer": "devseed"},
		},
	}
	for _, ev := range events {
		if err := s.activity.Track(ctx, ev); err != nil {
			logger.WarnContext(ctx, "seed activity failed", "app", ev.AppID, "error", err)
		}
	}
}
