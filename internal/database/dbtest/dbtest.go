// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fz-restaurant/internal/database"
)

// Origin of the seeded restaurant.
const (
	Latitude    = 12.9716
	Longitude   = 77.5946
	TotalTables = 20
)

// Open returns a migrated and seeded database. The pool is pinned to one
// connection because every ":memory:" connection is a separate database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db, database.Defaults{
		RestaurantName: "FZ Test Kitchen",
		Latitude:       Latitude,
		Longitude:      Longitude,
		TotalTables:    TotalTables,
	}))
	return db
}
