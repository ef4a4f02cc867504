package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/terralink-energy/portal-api/config"
	"github.com/terralink-energy/portal-api/internal/adapters/devauth"
	"github.com/terralink-energy/portal-api/internal/adapters/googleauth"
	"github.com/terralink-energy/portal-api/internal/adapters/memstore"
	"github.com/terralink-energy/portal-api/internal/adapters/redisstore"
	"github.com/terralink-energy/portal-api/internal/data"
	"github.com/terralink-energy/portal-api/internal/domain/portal"
	"github.com/terralink-energy/portal-api/internal/policy"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/service"
	"github.com/terralink-energy/portal-api/internal/token"
)

// ServiceContainer holds the wired portal services.
type ServiceContainer struct {
	Auth       *service.AuthService
	Validation *service.ValidationService
	Tokens     *service.TokenService
	Admin      *service.AdminService
	Activity   *service.ActivityService

	RateLimiter ports.RateLimiter
}

// ServiceDeps holds the dependencies needed to build the service container.
// DB and RedisClient may be nil in dev mode; in-memory stores substitute.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// storeSet groups the persistence ports the services are wired against.
type storeSet struct {
	sessions  ports.SessionStore
	appTokens ports.AppTokenStore
	blacklist ports.BlacklistStore
	audit     ports.AuditLog
	limiter   ports.RateLimiter
	overrides ports.RoleOverrideStore
	domains   ports.DomainWhitelistStore
	activity  ports.ActivityStore
}

func buildStores(deps *ServiceDeps) storeSet {
	cfg := deps.Config

	if deps.RedisClient == nil || deps.DB == nil {
		return storeSet{
			sessions:  memstore.NewSessionStore(),
			appTokens: memstore.NewAppTokenStore(),
			blacklist: memstore.NewBlacklistStore(),
			audit:     memstore.NewAuditLog(),
			limiter:   memstore.NewRateLimiter(cfg.Tokens.RateLimitCeiling, cfg.Tokens.RateLimitWindow),
			overrides: memstore.NewRoleOverrideStore(),
			domains:   memstore.NewDomainWhitelistStore(),
			activity:  memstore.NewActivityStore(),
		}
	}

	return storeSet{
		sessions:  redisstore.NewSessionStore(deps.RedisClient),
		appTokens: redisstore.NewAppTokenStore(deps.RedisClient),
		blacklist: redisstore.NewBlacklistStore(deps.RedisClient),
		audit:     redisstore.NewAuditLog(deps.RedisClient),
		limiter:   redisstore.NewRateLimiter(deps.RedisClient, cfg.Tokens.RateLimitCeiling, cfg.Tokens.RateLimitWindow),
		overrides: data.NewRoleOverrideRepo(deps.DB),
		domains:   data.NewDomainWhitelistRepo(deps.DB),
		activity:  data.NewActivityRepo(deps.DB),
	}
}

// buildVerifier picks the identity provider: Google outside dev mode, the
// configured dev identity otherwise.
func buildVerifier(ctx context.Context, deps *ServiceDeps) (ports.CredentialVerifier, ports.IdentityRevalidator, error) {
	cfg := deps.Config

	if cfg.IsDev && cfg.Auth.Google.ClientID == "" {
		verifier, err := devauth.NewVerifier(devauth.Config{
			SubjectID: cfg.Auth.DevAuth.SubjectID,
			Email:     cfg.Auth.DevAuth.Email,
			Name:      cfg.Auth.DevAuth.Name,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build dev verifier: %w", err)
		}
		deps.Logger.Warn("dev auth enabled; all logins resolve to the configured dev identity",
			"email", cfg.Auth.DevAuth.Email)
		return verifier, verifier, nil
	}

	verifier, err := googleauth.NewVerifier(ctx, googleauth.Config{
		ClientID:     cfg.Auth.Google.ClientID,
		ClientSecret: cfg.Auth.Google.ClientSecret,
		RedirectURL:  cfg.Auth.Google.RedirectURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build google verifier: %w", err)
	}

	engine := buildPolicy(cfg)
	revalidator := googleauth.NewRevalidator(googleauth.RevalidatorConfig{
		DomainAllowed: engine.DomainAllowed,
	})
	return verifier, revalidator, nil
}

func buildPolicy(cfg *config.AppConfig) *policy.Engine {
	return policy.NewEngine(policy.Config{
		AllowedDomains: cfg.Auth.AllowedDomains,
		AdminEmails:    cfg.Auth.AdminEmails,
		RoleMap:        cfg.Auth.RoleMap,
	})
}

// NewServices wires the full service container.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	deps.Logger = logger

	codec, err := token.NewCodec(cfg.Auth.SigningSecret)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build token codec: %w", err)
	}

	verifier, revalidator, err := buildVerifier(ctx, deps)
	if err != nil {
		return ServiceContainer{}, err
	}

	stores := buildStores(deps)
	engine := buildPolicy(cfg)
	catalog := portal.NewCatalog(portal.DefaultApplications())

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Verifier:        verifier,
		Policy:          engine,
		Overrides:       stores.overrides,
		Domains:         stores.domains,
		Blacklist:       stores.blacklist,
		Sessions:        stores.sessions,
		Codec:           codec,
		Audit:           stores.audit,
		SessionDuration: cfg.Tokens.SessionDuration,
		Logger:          logger,
	})

	tokenSvc := service.NewTokenService(service.TokenServiceOptions{
		AppTokens:     stores.appTokens,
		Blacklist:     stores.blacklist,
		Catalog:       catalog,
		Audit:         stores.audit,
		TokenDuration: cfg.Tokens.AppTokenDuration,
		Logger:        logger,
	})

	validationSvc := service.NewValidationService(service.ValidationServiceOptions{
		Sessions:             stores.sessions,
		AppTokens:            stores.appTokens,
		Blacklist:            stores.blacklist,
		Codec:                codec,
		Revalidator:          revalidator,
		Tokens:               tokenSvc,
		Audit:                stores.audit,
		RevalidationInterval: cfg.Tokens.RevalidationInterval,
		AutoVivifySessions:   cfg.Auth.AutoVivifySessions,
		SessionDuration:      cfg.Tokens.SessionDuration,
		Logger:               logger,
	})

	adminSvc := service.NewAdminService(service.AdminServiceOptions{
		Sessions:  stores.sessions,
		Blacklist: stores.blacklist,
		Overrides: stores.overrides,
		Domains:   stores.domains,
		Policy:    engine,
		Audit:     stores.audit,
		Logger:    logger,
	})

	activitySvc := service.NewActivityService(service.ActivityServiceOptions{
		Store:   stores.activity,
		Catalog: catalog,
	})

	return ServiceContainer{
		Auth:        authSvc,
		Validation:  validationSvc,
		Tokens:      tokenSvc,
		Admin:       adminSvc,
		Activity:    activitySvc,
		RateLimiter: stores.limiter,
	}, nil
}
