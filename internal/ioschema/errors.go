package ioschema

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// NotConnectedError creates an error for a schema operation attempted
// without a database connection.
func NotConnectedError() error {
	msg := "Schema operation attempted without a database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// GORMConnectionError creates an error for a failed GORM connection.
func GORMConnectionError(err error) error {
	msg := `Cannot open a GORM session over the connection pool

<em>How to fix:</em>
  1. Check that PostgreSQL is running
  2. Verify connection settings in ga2.yaml or GA2_DATABASE_* env vars`

	return &gn.Error{
		Code: errcode.SchemaGORMConnectionError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to connect with GORM: %w", err),
	}
}

// MigrateSchemaError creates an error for a failed AutoMigrate run.
func MigrateSchemaError(err error) error {
	msg := "Cannot migrate the database schema"

	return &gn.Error{
		Code: errcode.SchemaMigrateError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to migrate schema: %w", err),
	}
}
