package ioarchive_test

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thebinaryforest/ga2/internal/ioarchive"
)

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()

	zipPath := filepath.Join(t.TempDir(), "dwca.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return zipPath
}

func TestOpenReadsHeaderAndRows(t *testing.T) {
	zipPath := writeArchive(t, map[string]string{
		"occurrence.txt": "gbifID\tspeciesKey\tdatasetKey\n" +
			"1\t100\tds-1\n" +
			"2\t200\tds-2\n",
	})

	a, err := ioarchive.Open(zipPath)
	require.NoError(t, err)
	defer a.Close()

	cols := a.Columns()

	row, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", cols.Get(row, "gbifID"))
	assert.Equal(t, "100", cols.Get(row, "speciesKey"))

	row, err = a.Next()
	require.NoError(t, err)
	assert.Equal(t, "ds-2", cols.Get(row, "datasetKey"))

	_, err = a.Next()
	assert.Equal(t, io.EOF, err)
}

func TestColumnsMissingColumnIsEmpty(t *testing.T) {
	zipPath := writeArchive(t, map[string]string{
		"occurrence.txt": "gbifID\n42\n",
	})

	a, err := ioarchive.Open(zipPath)
	require.NoError(t, err)
	defer a.Close()

	row, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, "", a.Columns().Get(row, "speciesKey"),
		"absent columns degrade to empty values")
}

func TestOpenFindsNestedOccurrenceFile(t *testing.T) {
	zipPath := writeArchive(t, map[string]string{
		"dwca/occurrence.txt": "gbifID\n1\n",
		"dwca/meta.xml":       "<archive/>",
	})

	a, err := ioarchive.Open(zipPath)
	require.NoError(t, err)
	a.Close()
}

func TestOpenMissingOccurrenceFile(t *testing.T) {
	zipPath := writeArchive(t, map[string]string{
		"verbatim.txt": "gbifID\n1\n",
	})

	_, err := ioarchive.Open(zipPath)
	assert.Error(t, err)
}

func TestOpenNotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-zip.zip")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0644))

	_, err := ioarchive.Open(path)
	assert.Error(t, err)
}
