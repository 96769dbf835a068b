// Package storetest opens throwaway record stores for tests.
package storetest

import (
	"context"
	"testing"

	"prospectflow/models"
	"prospectflow/store"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an in-memory sqlite database with the metadata and record
// tables migrated and the default objects ensured.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.Tables()...))
	defs, err := models.DefaultObjectDefinitions()
	require.NoError(t, err)
	_, err = models.EnsureObjects(context.Background(), db, defs)
	require.NoError(t, err)
	return db
}

func NewStore(t testing.TB) *store.GormRecordStore {
	t.Helper()
	return store.NewGormRecordStore(NewDB(t))
}
