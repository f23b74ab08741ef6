package iosync

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thebinaryforest/ga2/internal/iodb"
	"github.com/thebinaryforest/ga2/internal/ioschema"
	"github.com/thebinaryforest/ga2/internal/iotesting"
	"github.com/thebinaryforest/ga2/pkg/db"
	"github.com/thebinaryforest/ga2/pkg/ga2"
	"github.com/thebinaryforest/ga2/pkg/identity"
)

// Note: these are integration tests against a real ga2_test database.
// Skip with: go test -short

// recordingNotifier captures digests instead of delivering them.
type recordingNotifier struct {
	mu      sync.Mutex
	digests []ga2.Notification
}

func (n *recordingNotifier) Notify(
	_ context.Context,
	d ga2.Notification,
) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, d)
	return nil
}

func setupTestDB(t *testing.T) db.Operator {
	t.Helper()

	cfg := iotesting.GetTestConfig()
	op := iodb.NewPgxOperator()

	ctx := context.Background()
	err := op.Connect(ctx, &cfg.Database)
	if err != nil {
		t.Skipf("Test database not available: %v", err)
	}
	t.Cleanup(func() { op.Close() })

	require.NoError(t, op.DropAllTables(ctx))
	require.NoError(t, ioschema.NewManager(op).Create(ctx))

	return op
}

// seedFixture creates one user, two taxa, one dataset, and three
// occurrences: two for taxon A (one of them a year old), one for
// taxon B. Returns the alert matching taxon A only.
func seedFixture(t *testing.T, op db.Operator) (alertID uint64) {
	t.Helper()
	ctx := context.Background()
	pool := op.Pool()

	var userID uint64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO users (username, email)
		VALUES ('alice', 'alice@example.org') RETURNING id`).Scan(&userID))

	var taxonA, taxonB uint64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO taxa (gbif_taxon_key, scientific_name)
		VALUES (100, 'Vespa velutina') RETURNING id`).Scan(&taxonA))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO taxa (gbif_taxon_key, scientific_name)
		VALUES (200, 'Lithobates catesbeianus') RETURNING id`).Scan(&taxonB))

	var datasetID uint64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO datasets (gbif_dataset_key, name)
		VALUES ('ds-1', 'Dataset One') RETURNING id`).Scan(&datasetID))

	recent := time.Now().UTC().AddDate(0, 0, -10)
	old := time.Now().UTC().AddDate(-1, 0, -10)
	occs := []struct {
		occID string
		taxon uint64
		date  time.Time
	}{
		{"occ-recent", taxonA, recent},
		{"occ-old", taxonA, old},
		{"occ-other-taxon", taxonB, recent},
	}
	for _, o := range occs {
		_, err := pool.Exec(ctx, `
			INSERT INTO occurrences
			  (gbif_id, occurrence_id, dataset_id, source_dataset_key,
			   taxon_id, date)
			VALUES ($1, $2, $3, 'ds-1', $4, $5)`,
			o.occID, o.occID, datasetID, o.taxon, o.date)
		require.NoError(t, err)
	}

	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO alerts
		  (user_id, name, email_frequency, auto_mark_seen_after_days)
		VALUES ($1, 'hornets', 'daily', 365) RETURNING id`,
		userID).Scan(&alertID))
	_, err := pool.Exec(ctx,
		"INSERT INTO alert_taxa (alert_id, taxon_id) VALUES ($1, $2)",
		alertID, taxonA)
	require.NoError(t, err)

	return alertID
}

func TestSyncIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := setupTestDB(t)
	alertID := seedFixture(t, op)

	ctx := context.Background()
	cfg := iotesting.GetTestConfig()
	notifier := &recordingNotifier{}
	syn := New(cfg, op, notifier)

	stats, err := syn.Sync(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.AlertsProcessed)
	assert.Equal(t, 0, stats.AlertsFailed)
	// Both taxon A occurrences match; the year-old one is tracked and
	// immediately auto-acknowledged in the same unit.
	assert.Equal(t, 2, stats.NewMatches)
	assert.Equal(t, 1, stats.AutoAcknowledged)
	assert.Equal(t, 1, stats.Notified)

	pool := op.Pool()
	var unseen int64
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT unseen_count FROM alerts WHERE id = $1",
		alertID).Scan(&unseen))
	assert.Equal(t, int64(1), unseen)

	var lastSent *time.Time
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT last_email_sent_at FROM alerts WHERE id = $1",
		alertID).Scan(&lastSent))
	require.NotNil(t, lastSent)

	require.Len(t, notifier.digests, 1)
	assert.Equal(t, "hornets", notifier.digests[0].AlertName)
	assert.Equal(t, "alice", notifier.digests[0].Username)
	assert.Equal(t, 2, notifier.digests[0].NewMatches)
	assert.Equal(t, 1, notifier.digests[0].UnseenCount)

	// On a rerun the aged occurrence is tracked and acknowledged
	// again, the recent one is already tracked, and the daily window
	// holds the notification back.
	stats, err = syn.Sync(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NewMatches)
	assert.Equal(t, 1, stats.AutoAcknowledged)
	assert.Equal(t, 0, stats.Notified)
	assert.Len(t, notifier.digests, 1)
}

func TestSyncRemovesStaleTracking(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := setupTestDB(t)
	alertID := seedFixture(t, op)

	ctx := context.Background()
	pool := op.Pool()

	// Track an identity that no occurrence carries, as if its record
	// vanished from the last snapshot.
	gone := identity.StableID("ds-1", "occ-gone")
	_, err := pool.Exec(ctx, `
		INSERT INTO alert_occurrences
		  (alert_id, stable_id, observation_date, created_at)
		VALUES ($1, $2, $3, $3)`,
		alertID, gone, time.Now().UTC())
	require.NoError(t, err)

	cfg := iotesting.GetTestConfig()
	syn := New(cfg, op, &recordingNotifier{})

	stats, err := syn.Sync(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.StaleRemoved)
	assert.Equal(t, 0, stats.Notified)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM alert_occurrences WHERE stable_id = $1",
		gone).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSyncAutoAckBoundary(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := setupTestDB(t)
	ctx := context.Background()
	pool := op.Pool()

	var userID, taxonID, datasetID, alertID uint64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO users (username, email)
		VALUES ('alice', 'alice@example.org') RETURNING id`).Scan(&userID))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO taxa (gbif_taxon_key, scientific_name)
		VALUES (100, 'Vespa velutina') RETURNING id`).Scan(&taxonID))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO datasets (gbif_dataset_key, name)
		VALUES ('ds-1', 'Dataset One') RETURNING id`).Scan(&datasetID))

	// One observation exactly at the age threshold, one a day past it.
	now := time.Now().UTC()
	occs := []struct {
		occID string
		date  time.Time
	}{
		{"occ-boundary", now.AddDate(0, 0, -365)},
		{"occ-past", now.AddDate(0, 0, -366)},
	}
	for _, o := range occs {
		_, err := pool.Exec(ctx, `
			INSERT INTO occurrences
			  (gbif_id, occurrence_id, dataset_id, source_dataset_key,
			   taxon_id, date)
			VALUES ($1, $2, $3, 'ds-1', $4, $5)`,
			o.occID, o.occID, datasetID, taxonID, o.date)
		require.NoError(t, err)
	}

	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO alerts
		  (user_id, name, email_frequency, auto_mark_seen_after_days)
		VALUES ($1, 'hornets', 'daily', 365) RETURNING id`,
		userID).Scan(&alertID))
	_, err := pool.Exec(ctx,
		"INSERT INTO alert_taxa (alert_id, taxon_id) VALUES ($1, $2)",
		alertID, taxonID)
	require.NoError(t, err)

	cfg := iotesting.GetTestConfig()
	stats, err := New(cfg, op, &recordingNotifier{}).Sync(ctx, false)
	require.NoError(t, err)

	// Age == threshold stays tracked; only strictly older comes off.
	assert.Equal(t, 2, stats.NewMatches)
	assert.Equal(t, 1, stats.AutoAcknowledged)

	var tracked int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM alert_occurrences WHERE stable_id = $1",
		identity.StableID("ds-1", "occ-boundary")).Scan(&tracked))
	assert.Equal(t, 1, tracked)
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM alert_occurrences WHERE stable_id = $1",
		identity.StableID("ds-1", "occ-past")).Scan(&tracked))
	assert.Equal(t, 0, tracked)

	var unseen int64
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT unseen_count FROM alerts WHERE id = $1",
		alertID).Scan(&unseen))
	assert.Equal(t, int64(1), unseen)
}

func TestSyncFilterDimensions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := setupTestDB(t)
	ctx := context.Background()
	pool := op.Pool()

	var userID uint64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO users (username, email)
		VALUES ('alice', 'alice@example.org') RETURNING id`).Scan(&userID))

	// Two taxa in two datasets, one occurrence per combination.
	taxa := map[int64]uint64{}
	for key, name := range map[int64]string{
		100: "Vespa velutina",
		200: "Lithobates catesbeianus",
	} {
		var id uint64
		require.NoError(t, pool.QueryRow(ctx, `
			INSERT INTO taxa (gbif_taxon_key, scientific_name)
			VALUES ($1, $2) RETURNING id`, key, name).Scan(&id))
		taxa[key] = id
	}
	datasets := map[string]uint64{}
	for _, key := range []string{"ds-x", "ds-y"} {
		var id uint64
		require.NoError(t, pool.QueryRow(ctx, `
			INSERT INTO datasets (gbif_dataset_key, name)
			VALUES ($1, $1) RETURNING id`, key).Scan(&id))
		datasets[key] = id
	}

	date := time.Now().UTC().AddDate(0, 0, -3)
	n := 0
	for _, taxonID := range taxa {
		for datasetKey, datasetID := range datasets {
			n++
			occID := fmt.Sprintf("occ-%d", n)
			_, err := pool.Exec(ctx, `
				INSERT INTO occurrences
				  (gbif_id, occurrence_id, dataset_id, source_dataset_key,
				   taxon_id, date)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				occID, occID, datasetID, datasetKey, taxonID, date)
			require.NoError(t, err)
		}
	}

	makeAlert := func(name string, taxonIDs, datasetIDs []uint64) uint64 {
		var id uint64
		require.NoError(t, pool.QueryRow(ctx, `
			INSERT INTO alerts
			  (user_id, name, email_frequency, auto_mark_seen_after_days)
			VALUES ($1, $2, 'daily', 365) RETURNING id`,
			userID, name).Scan(&id))
		for _, tid := range taxonIDs {
			_, err := pool.Exec(ctx,
				"INSERT INTO alert_taxa (alert_id, taxon_id) VALUES ($1, $2)",
				id, tid)
			require.NoError(t, err)
		}
		for _, did := range datasetIDs {
			_, err := pool.Exec(ctx, `
				INSERT INTO alert_datasets (alert_id, dataset_id)
				VALUES ($1, $2)`, id, did)
			require.NoError(t, err)
		}
		return id
	}

	// Filter dimensions combine as a conjunction; an empty dimension
	// does not restrict.
	both := makeAlert("both",
		[]uint64{taxa[100]}, []uint64{datasets["ds-x"]})
	datasetOnly := makeAlert("dataset-only",
		nil, []uint64{datasets["ds-x"]})
	taxonOnly := makeAlert("taxon-only",
		[]uint64{taxa[100]}, nil)
	unrestricted := makeAlert("unrestricted", nil, nil)

	cfg := iotesting.GetTestConfig()
	stats, err := New(cfg, op, &recordingNotifier{}).Sync(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.AlertsProcessed)
	assert.Equal(t, 1+2+2+4, stats.NewMatches)

	unseenOf := func(alertID uint64) int64 {
		var unseen int64
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT unseen_count FROM alerts WHERE id = $1",
			alertID).Scan(&unseen))
		return unseen
	}
	assert.Equal(t, int64(1), unseenOf(both))
	assert.Equal(t, int64(2), unseenOf(datasetOnly))
	assert.Equal(t, int64(2), unseenOf(taxonOnly))
	assert.Equal(t, int64(4), unseenOf(unrestricted))
}

func TestSyncWithoutAlerts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	op := setupTestDB(t)

	cfg := iotesting.GetTestConfig()
	syn := New(cfg, op, &recordingNotifier{})

	stats, err := syn.Sync(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.AlertsProcessed)
	assert.Equal(t, 0, stats.AlertsFailed)
}
