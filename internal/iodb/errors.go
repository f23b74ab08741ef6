package iodb

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// ConnectionError creates an error for a failed PostgreSQL connection.
func ConnectionError(
	host string,
	port int,
	database, user string,
	err error,
) error {
	msg := `Cannot connect to PostgreSQL

<em>Host:</em> %s:%d
<em>Database:</em> %s
<em>User:</em> %s

<em>How to fix:</em>
  1. Check that PostgreSQL is running
  2. Verify connection settings in ga2.yaml or GA2_DATABASE_* env vars
  3. Check that the database exists and the user has access`

	vars := []any{host, port, database, user}

	return &gn.Error{
		Code: errcode.DBConnectionError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to connect to database: %w", err),
	}
}

// NotConnectedError creates an error for an operation attempted
// without a database connection.
func NotConnectedError() error {
	msg := "Database operation attempted without connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// TableExistsCheckError creates an error for a failed table existence
// check.
func TableExistsCheckError(tableName string, err error) error {
	msg := `Cannot check if table exists

<em>Table:</em> %s`

	vars := []any{tableName}

	return &gn.Error{
		Code: errcode.DBTableExistsCheckError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("table existence check failed: %w", err),
	}
}

// TableCheckError creates an error for a failed schema inspection.
func TableCheckError(err error) error {
	msg := "Cannot inspect tables in the public schema"

	return &gn.Error{
		Code: errcode.DBTableCheckError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("table check failed: %w", err),
	}
}

// QueryTablesError creates an error for a failed table listing.
func QueryTablesError(err error) error {
	msg := "Cannot list tables in the public schema"

	return &gn.Error{
		Code: errcode.DBQueryTablesError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to query tables: %w", err),
	}
}

// ScanTableError creates an error for a failed table name scan.
func ScanTableError(err error) error {
	msg := "Cannot read table names"

	return &gn.Error{
		Code: errcode.DBScanTableError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to scan table name: %w", err),
	}
}

// DropTableError creates an error for a failed DROP TABLE.
func DropTableError(table string, err error) error {
	msg := `Cannot drop table

<em>Table:</em> %s`

	vars := []any{table}

	return &gn.Error{
		Code: errcode.DBDropTableError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to drop table %s: %w", table, err),
	}
}
