// Package pgtest connects tests to the database named by DATABASE_URL.
package pgtest

import (
	"os"
	"testing"

	"github.com/Swapica/twap-indexer-svc/internal/assets"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
	"gitlab.com/distributed_lab/kit/pgdb"
)

var migrations = &migrate.EmbedFileSystemMigrationSource{
	FileSystem: assets.Migrations,
	Root:       "migrations",
}

// DB skips the test when DATABASE_URL is unset, otherwise it returns a connection
// with the schema recreated from scratch.
func DB(t *testing.T) *pgdb.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := pgdb.Open(pgdb.Opts{URL: url, MaxOpenConnections: 16, MaxIdleConnections: 16})
	require.NoError(t, err)

	Migrate(t, db, migrate.Down)
	Migrate(t, db, migrate.Up)
	return db
}

func Migrate(t *testing.T, db *pgdb.DB, dir migrate.MigrationDirection) {
	t.Helper()
	_, err := migrate.Exec(db.RawDB(), "postgres", migrations, dir)
	require.NoError(t, err)
}
