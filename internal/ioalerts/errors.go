package ioalerts

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// NotConnectedError creates an error for a load attempted without a
// database connection.
func NotConnectedError() error {
	msg := "Alert definitions load attempted without a database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// FileError creates an error for an unreadable definitions file.
func FileError(path string, err error) error {
	msg := `Cannot read alert definitions

<em>File:</em> %s`

	vars := []any{path}

	return &gn.Error{
		Code: errcode.AlertsFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("failed to read definitions %s: %w", path, err),
	}
}

// DefinitionError creates an error for an invalid alert definition.
func DefinitionError(alertName, reason string) error {
	msg := `Invalid alert definition

<em>Alert:</em> %s
<em>Reason:</em> %s`

	vars := []any{alertName, reason}

	return &gn.Error{
		Code: errcode.AlertsFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("invalid alert %q: %s", alertName, reason),
	}
}

// ResolveError creates an error for a definition referencing entities
// that do not exist.
func ResolveError(alertName, kind string, refs any) error {
	msg := `Cannot resolve referenced entities

<em>Alert:</em> %s
<em>Missing %s:</em> %v

Import an archive that carries them first, or fix the definitions.`

	vars := []any{alertName, kind, refs}

	return &gn.Error{
		Code: errcode.AlertsResolveError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf("failed to resolve %s for alert %q: %v",
			kind, alertName, refs),
	}
}

// SaveError creates an error for a failed user or alert write.
func SaveError(err error) error {
	msg := "Cannot save alert definitions"

	return &gn.Error{
		Code: errcode.AlertsSaveError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to save alert definitions: %w", err),
	}
}
