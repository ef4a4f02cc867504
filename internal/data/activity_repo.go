package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/terralink-energy/portal-api/internal/data/pgxutil"
	domainauth "github.com/terralink-energy/portal-api/internal/domain/auth"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
)

// ActivityRepo stores sub-application usage events for the admin console.
type ActivityRepo struct {
	DB *sql.DB
}

// NewActivityRepo creates a new activity repository.
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{DB: db}
}

// Add persists one activity record.
func (r *ActivityRepo) Add(ctx context.Context, rec ports.ActivityRecord) error {
	if rec.ID == "" {
		return apperrors.Validation("activity record ID is required")
	}
	if rec.UserEmail == "" || rec.AppID == "" || rec.Action == "" {
		return apperrors.Validation("user_email, app_id and action are required")
	}

	var metadata []byte
	if len(rec.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
	}

	return pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO activity_log (id, user_email, user_role, app_id, app_name, action, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.ID, strings.ToLower(rec.UserEmail), string(rec.UserRole),
			rec.AppID, rec.AppName, rec.Action, metadata, rec.Timestamp)
		return err
	})
}

// Recent returns up to limit records, newest first, optionally scoped to one
// user email.
func (r *ActivityRepo) Recent(ctx context.Context, email string, limit int) ([]ports.ActivityRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, user_email, user_role, app_id, app_name, action, metadata, created_at
		FROM activity_log`
	args := []any{}
	if email != "" {
		query += ` WHERE user_email = $1`
		args = append(args, strings.ToLower(email))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	var records []ports.ActivityRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rec      ports.ActivityRecord
				role     string
				metadata []byte
			)
			if scanErr := rows.Scan(&rec.ID, &rec.UserEmail, &role, &rec.AppID,
				&rec.AppName, &rec.Action, &metadata, &rec.Timestamp); scanErr != nil {
				return scanErr
			}
			rec.UserRole = domainauth.Role(role)
			if len(metadata) > 0 {
				if unmarshalErr := json.Unmarshal(metadata, &rec.Metadata); unmarshalErr != nil {
					return fmt.Errorf("unmarshal activity metadata: %w", unmarshalErr)
				}
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
