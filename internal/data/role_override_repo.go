package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/terralink-energy/portal-api/internal/data/pgxutil"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

// RoleOverrideRepo stores admin-assigned role overrides. An override takes
// precedence over the statically configured role mapping until changed.
type RoleOverrideRepo struct {
	DB *sql.DB
}

// NewRoleOverrideRepo creates a new role override repository.
func NewRoleOverrideRepo(db *sql.DB) *RoleOverrideRepo {
	return &RoleOverrideRepo{DB: db}
}

// Set upserts the override for an email.
func (r *RoleOverrideRepo) Set(ctx context.Context, email string, role domainauth.Role, updatedBy string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperrors.Validation("email is required")
	}
	if !domainauth.ValidRole(role) {
		return apperrors.ValidationField("role", "unknown role")
	}

	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO role_overrides (email, role, updated_by, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (email) DO UPDATE
			SET role = EXCLUDED.role, updated_by = EXCLUDED.updated_by, updated_at = now()`,
			email, string(role), updatedBy)
		return err
	})
}

// Get returns the override for an email, if one exists.
func (r *RoleOverrideRepo) Get(ctx context.Context, email string) (domainauth.Role, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var role string
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT role FROM role_overrides WHERE email = $1`, email).Scan(&role)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return domainauth.Role(role), true, nil
}

// List returns all overrides keyed by email.
func (r *RoleOverrideRepo) List(ctx context.Context) (map[string]domainauth.Role, error) {
	overrides := make(map[string]domainauth.Role)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT email, role FROM role_overrides`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var email, role string
			if scanErr := rows.Scan(&email, &role); scanErr != nil {
				return scanErr
			}
			overrides[email] = domainauth.Role(role)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// Delete removes the override for an email. Missing overrides are not an error.
func (r *RoleOverrideRepo) Delete(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `DELETE FROM role_overrides WHERE email = $1`, email)
		return err
	})
}
