package store

import (
	"context"
	"testing"
	"time"

	"prospectflow/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormRecordStore {
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
	return NewGormRecordStore(db)
}

func recordIDs(recs []models.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

// tick keeps created_at strictly increasing between inserts.
func tick() { time.Sleep(2 * time.Millisecond) }
