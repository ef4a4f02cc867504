package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	"github.com/terralink-energy/portal-api/internal/obs"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/service"
)

var errAuthRequired = errors.New("authentication required")

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth       *service.AuthService
	Validation *service.ValidationService
	Tokens     *service.TokenService
	Admin      *service.AdminService
	Activity   *service.ActivityService

	// RateLimiter guards the whole surface. Optional; nil disables limiting.
	RateLimiter ports.RateLimiter

	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the portal's HTTP router with the full
// middleware chain applied.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain}
	validateHandlers := &ValidateHandlers{
		Validation: services.Validation,
		Tokens:     services.Tokens,
		Auth:       services.Auth,
	}
	adminHandlers := &AdminHandlers{Svc: services.Admin}
	activityHandlers := &ActivityHandlers{Svc: services.Activity}

	requireAuth := RequireAuth(services.Auth)
	requireAdmin := RequireRole(services.Auth, domainauth.RoleAdmin)

	mux.HandleFunc("POST /auth/login", authHandlers.Login)
	mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	mux.HandleFunc("GET /auth/session", authHandlers.Session)
	mux.HandleFunc("POST /auth/validate", validateHandlers.Validate)
	mux.HandleFunc("POST /auth/app-token", validateHandlers.AppToken)

	mux.Handle("POST /auth/revoke", requireAdmin(http.HandlerFunc(adminHandlers.Revoke)))
	mux.Handle("GET /auth/check/{email}", requireAdmin(http.HandlerFunc(adminHandlers.Check)))

	mux.Handle("GET /admin/users", requireAdmin(http.HandlerFunc(adminHandlers.ListUsers)))
	mux.Handle("PUT /admin/users", requireAdmin(http.HandlerFunc(adminHandlers.UpdateRole)))
	mux.Handle("DELETE /admin/users", requireAdmin(http.HandlerFunc(adminHandlers.DeleteUser)))
	mux.Handle("GET /admin/domains", requireAdmin(http.HandlerFunc(adminHandlers.ListDomains)))
	mux.Handle("POST /admin/domains", requireAdmin(http.HandlerFunc(adminHandlers.AddDomain)))
	mux.Handle("DELETE /admin/domains", requireAdmin(http.HandlerFunc(adminHandlers.RemoveDomain)))
	mux.Handle("GET /admin/audit", requireAdmin(http.HandlerFunc(adminHandlers.Audit)))
	mux.Handle("GET /admin/activity", requireAdmin(http.HandlerFunc(activityHandlers.Query)))

	mux.Handle("POST /activity/track", requireAuth(http.HandlerFunc(activityHandlers.Track)))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /metrics", obs.Handler())

	var handler http.Handler = mux
	if services.RateLimiter != nil {
		handler = RateLimit(services.RateLimiter, logger)(handler)
	}
	handler = obs.Instrument(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}
