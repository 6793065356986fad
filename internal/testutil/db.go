package testutil

import (
	"path"
	"testing"

	"github.com/goran-ethernal/TokenIndexor/internal/db"
	"github.com/goran-ethernal/TokenIndexor/internal/logger"
	"github.com/goran-ethernal/TokenIndexor/internal/migrations"
	"github.com/goran-ethernal/TokenIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a migrated sqlite database in a temporary directory.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, _ := NewTestDBWithPath(t)
	return database
}

// NewTestDBWithPath is NewTestDB that also returns the database file path.
func NewTestDBWithPath(t *testing.T) (*db.DB, string) {
	t.Helper()

	cfg := config.DatabaseConfig{Path: path.Join(t.TempDir(), "indexer.db")}
	cfg.ApplyDefaults()

	database, err := db.NewSQLiteDBFromConfig(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.RunMigrations(logger.NewNopLogger(), database))

	return database, cfg.Path
}
