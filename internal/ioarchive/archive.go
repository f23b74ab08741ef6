// Package ioarchive streams occurrence rows out of a Darwin Core
// archive: a zip file containing a tab-separated occurrence.txt with a
// header row, UTF-8 encoded.
package ioarchive

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"path"
	"strings"
)

// occurrenceFile is the primary table inside a Darwin Core archive.
const occurrenceFile = "occurrence.txt"

// Columns maps header names to field indexes. Expected columns that are
// absent from the archive degrade to always-empty values instead of
// failing the run.
type Columns map[string]int

// Get returns the value of a named column in row, or "" when the
// column does not exist or the row is short.
func (c Columns) Get(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Archive is an open Darwin Core archive positioned after the header
// row of occurrence.txt.
type Archive struct {
	zr      *zip.ReadCloser
	entry   io.ReadCloser
	reader  *csv.Reader
	columns Columns
}

// Open opens the archive at zipPath and locates occurrence.txt. A
// missing or header-less occurrence table is a fatal error; the caller
// must not have touched the database yet.
func Open(zipPath string) (*Archive, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, OpenError(zipPath, err)
	}

	var file *zip.File
	for _, f := range zr.File {
		if path.Base(f.Name) == occurrenceFile {
			file = f
			break
		}
	}
	if file == nil {
		zr.Close()
		return nil, NoOccurrenceFileError(zipPath)
	}

	entry, err := file.Open()
	if err != nil {
		zr.Close()
		return nil, OpenError(zipPath, err)
	}

	reader := csv.NewReader(entry)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		entry.Close()
		zr.Close()
		return nil, HeaderError(zipPath, err)
	}

	columns := make(Columns, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	return &Archive{
		zr:      zr,
		entry:   entry,
		reader:  reader,
		columns: columns,
	}, nil
}

// Columns returns the header-derived column map.
func (a *Archive) Columns() Columns {
	return a.columns
}

// Next returns the next data row. io.EOF signals the end of the table.
// The reader tolerates stray quotes and ragged field counts, so any
// other error means the archive stream itself is broken and the read
// cannot continue.
func (a *Archive) Next() ([]string, error) {
	return a.reader.Read()
}

// Close releases the archive resources.
func (a *Archive) Close() error {
	if a.entry != nil {
		a.entry.Close()
	}
	if a.zr != nil {
		return a.zr.Close()
	}
	return nil
}
