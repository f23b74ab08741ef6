package ioschema

import (
	"context"
	"testing"

	"github.com/gnames/gn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thebinaryforest/ga2/internal/iodb"
	"github.com/thebinaryforest/ga2/internal/iotesting"
	"github.com/thebinaryforest/ga2/pkg/db"
	"github.com/thebinaryforest/ga2/pkg/errcode"
	"github.com/thebinaryforest/ga2/pkg/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Note: these are integration tests against a real ga2_test database.
// Skip with: go test -short

func setupTestDB(t *testing.T) db.Operator {
	t.Helper()

	cfg := iotesting.GetTestConfig()
	op := iodb.NewPgxOperator()

	ctx := context.Background()
	err := op.Connect(ctx, &cfg.Database)
	if err != nil {
		t.Skipf("Test database not available: %v", err)
	}
	t.Cleanup(func() { op.Close() })

	require.NoError(t, op.DropAllTables(ctx))

	return op
}

func gormSession(t *testing.T, op db.Operator) *gorm.DB {
	t.Helper()

	sqlDB := stdlib.OpenDBFromPool(op.Pool())
	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{},
	)
	require.NoError(t, err)
	return gormDB
}

func TestCreateBuildsSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	op := setupTestDB(t)
	ctx := context.Background()

	m := NewManager(op)
	require.NoError(t, m.Create(ctx))

	tables := []string{
		"users", "taxa", "datasets", "occurrences",
		"alerts", "alert_occurrences", "alert_taxa", "alert_datasets",
	}
	for _, table := range tables {
		exists, err := op.TableExists(ctx, table)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}

	// Migrate on an up-to-date schema is a no-op.
	require.NoError(t, m.Migrate(ctx))
}

func TestDatasetKeyImmutable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	op := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewManager(op).Create(ctx))
	gormDB := gormSession(t, op).WithContext(ctx)

	ds := schema.Dataset{GbifDatasetKey: "ds-1", Name: "Dataset One"}
	require.NoError(t, gormDB.Create(&ds).Error)

	// Renaming is fine, the natural key is not.
	ds.Name = "Renamed"
	require.NoError(t, gormDB.Save(&ds).Error)

	ds.GbifDatasetKey = "ds-2"
	err := gormDB.Save(&ds).Error
	require.Error(t, err)
	var gnErr *gn.Error
	require.ErrorAs(t, err, &gnErr)
	assert.Equal(t, errcode.SchemaNaturalKeyError, gnErr.Code)

	var fresh schema.Dataset
	require.NoError(t, gormDB.First(&fresh, ds.ID).Error)
	assert.Equal(t, "ds-1", fresh.GbifDatasetKey)
	assert.Equal(t, "Renamed", fresh.Name)
}
