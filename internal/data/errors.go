package data

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
)

// mapPgError converts well-known Postgres error classes to coded errors so
// the HTTP layer can answer with the right status.
func mapPgError(err error, conflictMsg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, conflictMsg)
	}
	return err
}
