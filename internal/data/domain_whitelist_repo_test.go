package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/terralink-energy/portal-api/internal/errors"
	"github.com/terralink-energy/portal-api/internal/ports"
	"github.com/terralink-energy/portal-api/internal/testutil"
)

func TestDomainWhitelistRepo_AddContainsRemove(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewDomainWhitelistRepo(db)
		ctx := context.Background()

		entry := ports.DomainWhitelistEntry{
			Domain:  "Partner.Example",
			AddedBy: "admin@example.com",
			AddedAt: time.Now(),
		}
		require.NoError(t, repo.Add(ctx, entry))

		ok, err := repo.Contains(ctx, "partner.example")
		require.NoError(t, err)
		assert.True(t, ok)

		// Duplicate insert maps to a conflict.
		err = repo.Add(ctx, entry)
		assert.True(t, apperrors.IsConflict(err))

		entries, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "partner.example", entries[0].Domain)
		assert.Equal(t, "admin@example.com", entries[0].AddedBy)

		require.NoError(t, repo.Remove(ctx, "partner.example"))
		err = repo.Remove(ctx, "partner.example")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDomainWhitelistRepo_RejectsBareLabel(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := NewDomainWhitelistRepo(db)

		err := repo.Add(context.Background(), ports.DomainWhitelistEntry{Domain: "localhost"})
		assert.True(t, apperrors.IsValidation(err))
	})
}
