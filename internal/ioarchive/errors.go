package ioarchive

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
)

// OpenError creates an error for an archive that cannot be opened or
// read as a zip file.
func OpenError(path string, err error) error {
	msg := `Cannot open Darwin Core archive

<em>Path:</em> %s

<em>Possible causes:</em>
  - File does not exist
  - File is not a zip archive
  - Archive is corrupted`

	vars := []any{path}

	return &gn.Error{
		Code: errcode.ImportArchiveOpenError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot open archive: %w", err),
	}
}

// NoOccurrenceFileError creates an error for an archive without an
// occurrence.txt entry.
func NoOccurrenceFileError(path string) error {
	msg := `Archive contains no occurrence table

<em>Path:</em> %s

A Darwin Core archive must contain an <em>occurrence.txt</em> file.`

	vars := []any{path}

	return &gn.Error{
		Code: errcode.ImportNoOccurrenceFileError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("no occurrence.txt in %s", path),
	}
}

// HeaderError creates an error for an occurrence table whose header
// row cannot be read.
func HeaderError(path string, err error) error {
	msg := `Cannot read the occurrence table header

<em>Path:</em> %s`

	vars := []any{path}

	return &gn.Error{
		Code: errcode.ImportHeaderError,
		Msg:  msg,
		Vars: vars,
		Err:  fmt.Errorf("cannot read header: %w", err),
	}
}
