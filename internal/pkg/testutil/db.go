// Package testutil holds fixtures shared by service and handler tests.
package testutil

import (
	"context"
	"testing"

	"vectorium-backend/internal/catalog"
	"vectorium-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database. One connection keeps
// every query on the same in-memory instance.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// SeedCatalog inserts the six demo listings.
func SeedCatalog(t testing.TB, db *gorm.DB) {
	t.Helper()
	items := catalog.SeedItems()
	require.NoError(t, db.WithContext(context.Background()).Create(&items).Error)
}
