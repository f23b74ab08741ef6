package iosync

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thebinaryforest/ga2/internal/ioimport"
	"github.com/thebinaryforest/ga2/internal/iotesting"
)

func writeArchive(t *testing.T, occurrences string) string {
	t.Helper()

	zipPath := filepath.Join(t.TempDir(), "dwca.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("occurrence.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte(occurrences))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	return zipPath
}

// TestImportThenSync walks the whole pipeline: import a snapshot,
// define an alert on one of its taxa, sync, replace the snapshot with
// one that no longer carries the matching record, sync again.
func TestImportThenSync(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := setupTestDB(t)
	ctx := context.Background()
	cfg := iotesting.GetTestConfig()
	pool := op.Pool()

	header := "gbifID\toccurrenceID\tspeciesKey\tdatasetKey\t" +
		"species\tdatasetName\teventDate\n"
	date := time.Now().UTC().AddDate(0, 0, -3).Format("2006-01-02")

	rowA := "1\tocc-a\t100\tds-1\tVespa velutina\tDataset One\t" +
		date + "\n"
	rowB := "2\tocc-b\t200\tds-1\tLithobates catesbeianus\t" +
		"Dataset One\t" + date + "\n"
	rowBad := "3\tocc-bad\tnot-a-key\tds-1\tMystery\tDataset One\t" +
		date + "\n"

	imp := ioimport.New(cfg, op)
	istats, err := imp.Import(ctx, writeArchive(t, header+rowA+rowB+rowBad))
	require.NoError(t, err)
	assert.Equal(t, 2, istats.Imported)
	assert.Equal(t, 1, istats.Skipped)
	assert.Equal(t, 2, istats.TaxaCreated)
	assert.Equal(t, 1, istats.DatasetsCreated)

	// An alert on taxon 100 only, created the way an external
	// application would.
	var userID, taxonA, alertID uint64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO users (username, email)
		VALUES ('alice', 'alice@example.org') RETURNING id`).Scan(&userID))
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT id FROM taxa WHERE gbif_taxon_key = 100").Scan(&taxonA))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO alerts
		  (user_id, name, email_frequency, auto_mark_seen_after_days)
		VALUES ($1, 'hornets', 'daily', 365) RETURNING id`,
		userID).Scan(&alertID))
	_, err = pool.Exec(ctx,
		"INSERT INTO alert_taxa (alert_id, taxon_id) VALUES ($1, $2)",
		alertID, taxonA)
	require.NoError(t, err)

	syn := New(cfg, op, &recordingNotifier{})
	sstats, err := syn.Sync(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, sstats.NewMatches)
	assert.Equal(t, 0, sstats.AutoAcknowledged)

	var unseen int64
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT unseen_count FROM alerts WHERE id = $1",
		alertID).Scan(&unseen))
	assert.Equal(t, int64(1), unseen)

	// The next snapshot no longer carries occ-a; its tracked identity
	// is stale and the unseen count falls back to zero.
	istats, err = imp.Import(ctx, writeArchive(t, header+rowB))
	require.NoError(t, err)
	assert.Equal(t, 1, istats.Imported)
	assert.Equal(t, 0, istats.TaxaCreated)

	sstats, err = syn.Sync(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sstats.StaleRemoved)
	assert.Equal(t, 0, sstats.NewMatches)

	require.NoError(t, pool.QueryRow(ctx,
		"SELECT unseen_count FROM alerts WHERE id = $1",
		alertID).Scan(&unseen))
	assert.Equal(t, int64(0), unseen)
}
