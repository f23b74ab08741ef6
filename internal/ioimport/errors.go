package ioimport

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// NotConnectedError creates an error for an import attempted without a
// database connection.
func NotConnectedError() error {
	msg := "Import attempted without a database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// TruncateError creates an error for a failed occurrences truncation.
func TruncateError(err error) error {
	msg := `Cannot truncate the occurrences table

The previous snapshot is untouched; no data was lost.`

	return &gn.Error{
		Code: errcode.ImportTruncateError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to truncate occurrences: %w", err),
	}
}

// CacheLoadError creates an error for a failed reference preload.
func CacheLoadError(table string, err error) error {
	msg := `Cannot preload reference cache

<em>Table:</em> %s`

	vars := []any{table}

	return &gn.Error{
		Code: errcode.ImportCacheLoadError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to load %s cache: %w", table, err),
	}
}

// FlushError creates an error for a failed reference flush.
func FlushError(table string, err error) error {
	msg := `Cannot create referenced entities

<em>Table:</em> %s`

	vars := []any{table}

	return &gn.Error{
		Code: errcode.ImportFlushError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to flush %s: %w", table, err),
	}
}

// InsertError creates an error for a failed occurrence batch insert.
func InsertError(err error) error {
	msg := "Cannot insert an occurrence batch"

	return &gn.Error{
		Code: errcode.ImportInsertError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to insert occurrences: %w", err),
	}
}
