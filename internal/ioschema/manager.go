// Package ioschema implements the SchemaManager interface for
// database schema management. This is an impure I/O package that
// wraps GORM AutoMigrate functionality.
package ioschema

import (
	"context"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/thebinaryforest/ga2/pkg/db"
	"github.com/thebinaryforest/ga2/pkg/ga2"
	"github.com/thebinaryforest/ga2/pkg/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// manager implements the ga2.SchemaManager interface using GORM
// AutoMigrate.
type manager struct {
	operator db.Operator
}

// NewManager creates a new SchemaManager.
func NewManager(op db.Operator) ga2.SchemaManager {
	return &manager{operator: op}
}

// Create creates the initial database schema using GORM AutoMigrate.
func (m *manager) Create(ctx context.Context) error {
	return m.migrate(ctx)
}

// Migrate updates the database schema to the latest version using
// GORM AutoMigrate.
func (m *manager) Migrate(ctx context.Context) error {
	return m.migrate(ctx)
}

func (m *manager) migrate(ctx context.Context) error {
	pool := m.operator.Pool()
	if pool == nil {
		return NotConnectedError()
	}

	sqlDB := stdlib.OpenDBFromPool(pool)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{},
	)
	if err != nil {
		return GORMConnectionError(err)
	}

	if err := schema.Migrate(gormDB.WithContext(ctx)); err != nil {
		return MigrateSchemaError(err)
	}

	return nil
}
