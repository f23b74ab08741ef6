package iologger

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// CreateLogFileError creates an error for a log file that cannot be
// opened for writing.
func CreateLogFileError(path string, err error) error {
	msg := `Cannot create log file

<em>Path:</em> %s`

	vars := []any{path}

	return &gn.Error{
		Code: errcode.CreateLogFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot create log file: %w", err),
	}
}
