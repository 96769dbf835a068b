package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(Tables()...))
	return db
}

func TestEnsureObjectsIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	defs, err := DefaultObjectDefinitions()
	require.NoError(t, err)

	first, err := EnsureObjects(ctx, db, defs)
	require.NoError(t, err)
	require.Len(t, first, len(defs))
	for i, result := range first {
		assert.True(t, result.Created, result.APIName)
		assert.Equal(t, len(defs[i].Fields), result.Fields)
	}

	second, err := EnsureObjects(ctx, db, defs)
	require.NoError(t, err)
	for _, result := range second {
		assert.False(t, result.Created, result.APIName)
	}

	var objects, fields int64
	require.NoError(t, db.Model(&ObjectMetadata{}).Count(&objects).Error)
	require.NoError(t, db.Model(&FieldMetadata{}).Count(&fields).Error)
	assert.Equal(t, int64(len(defs)), objects)

	want := 0
	for _, def := range defs {
		want += len(def.Fields)
	}
	assert.Equal(t, int64(want), fields)
}

func TestEnsureObjectsSkipsExisting(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&ObjectMetadata{ID: "pre", NameSingular: ObjectWebsets, NamePlural: "Websets"}).Error)

	results, err := EnsureObjects(ctx, db, []ObjectDefinition{
		{APIName: ObjectWebsets, PluralName: "Websets", Fields: []FieldDefinition{{Name: "query", Type: FieldTypeText}}},
		{APIName: "notes", PluralName: "Notes", Fields: []FieldDefinition{{Name: "body", Type: FieldTypeText}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []EnsureResult{
		{APIName: ObjectWebsets},
		{APIName: "notes", Created: true, Fields: 1},
	}, results)

	var existing ObjectMetadata
	require.NoError(t, db.Preload("Fields").Where("name_singular = ?", ObjectWebsets).First(&existing).Error)
	assert.Empty(t, existing.Fields)
}
