package httpx

import (
	"net/http"
	"strconv"

	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/obs"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/service"
)

// AdminHandlers provides the admin console endpoints. Routes are gated with
// RequireRole(admin); handlers read the acting admin from the context.
type AdminHandlers struct {
	Svc *service.AdminService
}

func actor(w http.ResponseWriter, r *http.Request) (domainauth.User, bool) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.New(apperrors.ErrCodeInternal, "missing session in context"))
		return domainauth.User{}, false
	}
	return sess.User, true
}

type revokeRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Revoke handles POST /auth/revoke.
func (h *AdminHandlers) Revoke(w http.ResponseWriter, r *http.Request) {
	admin, ok := actor(w, r)
	if !ok {
		return
	}

	var req revokeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Revoke(r.Context(), service.RevokeInput{
		Actor:     admin,
		Email:     req.Email,
		Reason:    req.Reason,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	obs.RecordRevocation()

	WriteJSON(w, http.StatusOK, result)
}

// Check handles GET /auth/check/{email}, the lightweight blacklist probe.
func (h *AdminHandlers) Check(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.CheckEmail(r.Context(), r.PathValue("email"))
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// ListUsers handles GET /admin/users.
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Svc.ListUsers(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type updateRoleRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UpdateRole handles PUT /admin/users.
func (h *AdminHandlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	admin, ok := actor(w, r)
	if !ok {
		return
	}

	var req updateRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.UpdateRole(r.Context(), admin, req.Email, domainauth.Role(req.Role)); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type deleteUserRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// DeleteUser handles DELETE /admin/users. Deleting a user revokes access.
func (h *AdminHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := actor(w, r)
	if !ok {
		return
	}

	var req deleteUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Revoke(r.Context(), service.RevokeInput{
		Actor:     admin,
		Email:     req.Email,
		Reason:    req.Reason,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	obs.RecordRevocation()

	WriteJSON(w, http.StatusOK, result)
}

// ListDomains handles GET /admin/domains.
func (h *AdminHandlers) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.Svc.ListDomains(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if domains == nil {
		domains = []ports.DomainWhitelistEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"domains": domains})
}

type domainRequest struct {
	Domain string `json:"domain"`
}

// AddDomain handles POST /admin/domains.
func (h *AdminHandlers) AddDomain(w http.ResponseWriter, r *http.Request) {
	admin, ok := actor(w, r)
	if !ok {
		return
	}

	var req domainRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.AddDomain(r.Context(), admin, req.Domain); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// RemoveDomain handles DELETE /admin/domains.
func (h *AdminHandlers) RemoveDomain(w http.ResponseWriter, r *http.Request) {
	admin, ok := actor(w, r)
	if !ok {
		return
	}

	var req domainRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.RemoveDomain(r.Context(), admin, req.Domain); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Audit handles GET /admin/audit?category=logins&limit=100.
func (h *AdminHandlers) Audit(w http.ResponseWriter, r *http.Request) {
	category := ports.AuditCategory(r.URL.Query().Get("category"))
	if category == "" {
		category = ports.AuditLogins
	}
	limit := parseIntQuery(r, "limit", 100)

	entries, err := h.Svc.RecentAudit(r.Context(), category, limit)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if entries == nil {
		entries = []domainauth.AuditEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
