package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/terralink-energy/portal-api/internal/data/pgxutil"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

// DomainWhitelistRepo stores runtime-added allowed email domains, layered on
// top of the statically configured list.
type DomainWhitelistRepo struct {
	DB *sql.DB
}

// NewDomainWhitelistRepo creates a new domain whitelist repository.
func NewDomainWhitelistRepo(db *sql.DB) *DomainWhitelistRepo {
	return &DomainWhitelistRepo{DB: db}
}

// Add inserts a domain. Adding an already-present domain is a conflict.
func (r *DomainWhitelistRepo) Add(ctx context.Context, entry ports.DomainWhitelistEntry) error {
	domain := strings.ToLower(strings.TrimSpace(entry.Domain))
	if domain == "" || !strings.Contains(domain, ".") {
		return apperrors.ValidationField("domain", "a dotted domain name is required")
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO domain_whitelist (domain, added_by, added_at)
			VALUES ($1, $2, $3)`,
			domain, entry.AddedBy, entry.AddedAt)
		return execErr
	})
	if err != nil {
		return mapPgError(err, "domain already whitelisted")
	}
	return nil
}

// Remove deletes a domain from the whitelist.
func (r *DomainWhitelistRepo) Remove(ctx context.Context, domain string) error {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		result, err := conn.Exec(ctx, `DELETE FROM domain_whitelist WHERE domain = $1`, domain)
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return apperrors.New(apperrors.ErrCodeNotFound, "domain not whitelisted")
		}
		return nil
	})
}

// Contains reports whether a domain is in the runtime whitelist.
func (r *DomainWhitelistRepo) Contains(ctx context.Context, domain string) (bool, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	var found bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM domain_whitelist WHERE domain = $1)`, domain).Scan(&found)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

// List returns all whitelisted domains, newest first.
func (r *DomainWhitelistRepo) List(ctx context.Context) ([]ports.DomainWhitelistEntry, error) {
	var entries []ports.DomainWhitelistEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT domain, added_by, added_at
			FROM domain_whitelist
			ORDER BY added_at DESC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		collected, err := pgx.CollectRows(rows, pgx.RowToStructByPos[ports.DomainWhitelistEntry])
		if err != nil {
			return err
		}
		entries = collected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
