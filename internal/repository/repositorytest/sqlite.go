// Package repositorytest provides a migrated in-memory store for tests.
package repositorytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-catalog/internal/database"
	"github.com/iliyamo/cinema-catalog/internal/repository"
)

// NewStore opens a private in-memory SQLite database, creates the catalog
// schema and closes the database when the test finishes.
func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite", database.SQLiteDSN(""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := repository.NewStore(db, repository.SQLite)
	require.NoError(t, store.Migrate(ctx))
	return store
}
