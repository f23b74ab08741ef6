package ioimport

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thebinaryforest/ga2/pkg/identity"
)

// pendingTaxon carries first-write-wins attributes for a taxon that is
// referenced by the current batch but does not exist in the store yet.
type pendingTaxon struct {
	taxonKey       int64
	scientificName string
	vernacularName string
	canonicalName  string
}

// pendingDataset is the dataset counterpart of pendingTaxon.
type pendingDataset struct {
	datasetKey string
	name       string
}

// refCache resolves taxa and datasets by natural key for one import
// run. It is preloaded once from the full tables and refreshed from
// the authoritative rows after every flush, so resolution after a
// flush either succeeds or the dependent rows must be rejected.
type refCache struct {
	taxa     map[int64]uint64
	datasets map[string]uint64

	pendingTaxa     map[int64]pendingTaxon
	pendingDatasets map[string]pendingDataset

	taxaCreated     int
	datasetsCreated int
}

func newRefCache() *refCache {
	return &refCache{
		taxa:            make(map[int64]uint64),
		datasets:        make(map[string]uint64),
		pendingTaxa:     make(map[int64]pendingTaxon),
		pendingDatasets: make(map[string]pendingDataset),
	}
}

// load preloads the cache from the full taxa and datasets tables.
func (c *refCache) load(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, "SELECT id, gbif_taxon_key FROM taxa")
	if err != nil {
		return CacheLoadError("taxa", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var key int64
		if err := rows.Scan(&id, &key); err != nil {
			return CacheLoadError("taxa", err)
		}
		c.taxa[key] = id
	}
	if err := rows.Err(); err != nil {
		return CacheLoadError("taxa", err)
	}

	rows, err = pool.Query(ctx, "SELECT id, gbif_dataset_key FROM datasets")
	if err != nil {
		return CacheLoadError("datasets", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return CacheLoadError("datasets", err)
		}
		c.datasets[key] = id
	}
	if err := rows.Err(); err != nil {
		return CacheLoadError("datasets", err)
	}

	return nil
}

// stageTaxon records a taxon for creation at the next flush unless it
// is already known or staged. First sighting wins within a batch.
func (c *refCache) stageTaxon(t pendingTaxon) {
	if _, ok := c.taxa[t.taxonKey]; ok {
		return
	}
	if _, ok := c.pendingTaxa[t.taxonKey]; ok {
		return
	}
	c.pendingTaxa[t.taxonKey] = t
}

// stageDataset records a dataset for creation at the next flush.
// Keys that would make the stable identity ambiguous are reported.
func (c *refCache) stageDataset(d pendingDataset) bool {
	if !identity.ValidateDatasetKey(d.datasetKey) {
		return false
	}
	if _, ok := c.datasets[d.datasetKey]; ok {
		return true
	}
	if _, ok := c.pendingDatasets[d.datasetKey]; ok {
		return true
	}
	c.pendingDatasets[d.datasetKey] = d
	return true
}

func (c *refCache) resolveTaxon(key int64) (uint64, bool) {
	id, ok := c.taxa[key]
	return id, ok
}

func (c *refCache) resolveDataset(key string) (uint64, bool) {
	id, ok := c.datasets[key]
	return id, ok
}

// flush bulk-inserts all staged entities inside tx, ignoring conflicts
// (another resolution may have created the same natural key), then
// re-queries the affected keys and merges the authoritative rows back
// into the cache.
func (c *refCache) flush(ctx context.Context, tx pgx.Tx) error {
	if err := c.flushDatasets(ctx, tx); err != nil {
		return err
	}
	if err := c.flushTaxa(ctx, tx); err != nil {
		return err
	}
	return nil
}

func (c *refCache) flushDatasets(ctx context.Context, tx pgx.Tx) error {
	if len(c.pendingDatasets) == 0 {
		return nil
	}

	var valueStrings []string
	var valueArgs []any
	var keys []string
	argIdx := 1
	for _, d := range c.pendingDatasets {
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d, $%d)", argIdx, argIdx+1))
		valueArgs = append(valueArgs, d.datasetKey, d.name)
		keys = append(keys, d.datasetKey)
		argIdx += 2
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO datasets (gbif_dataset_key, name) VALUES %s
		 ON CONFLICT (gbif_dataset_key) DO NOTHING`,
		strings.Join(valueStrings, ", "),
	)
	res, err := tx.Exec(ctx, insertQuery, valueArgs...)
	if err != nil {
		return FlushError("datasets", err)
	}
	c.datasetsCreated += int(res.RowsAffected())

	// Refresh cache with newly created rows, and with any that already
	// existed because of a conflicting concurrent insert.
	rows, err := tx.Query(ctx,
		"SELECT id, gbif_dataset_key FROM datasets WHERE gbif_dataset_key = ANY($1)",
		keys)
	if err != nil {
		return FlushError("datasets", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return FlushError("datasets", err)
		}
		c.datasets[key] = id
	}
	if err := rows.Err(); err != nil {
		return FlushError("datasets", err)
	}

	c.pendingDatasets = make(map[string]pendingDataset)
	return nil
}

func (c *refCache) flushTaxa(ctx context.Context, tx pgx.Tx) error {
	if len(c.pendingTaxa) == 0 {
		return nil
	}

	var valueStrings []string
	var valueArgs []any
	var keys []int64
	argIdx := 1
	for _, t := range c.pendingTaxa {
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d, $%d, $%d, $%d)",
				argIdx, argIdx+1, argIdx+2, argIdx+3))
		valueArgs = append(valueArgs,
			t.taxonKey, t.scientificName, t.vernacularName, t.canonicalName)
		keys = append(keys, t.taxonKey)
		argIdx += 4
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO taxa
		   (gbif_taxon_key, scientific_name, vernacular_name, canonical_name)
		 VALUES %s
		 ON CONFLICT (gbif_taxon_key) DO NOTHING`,
		strings.Join(valueStrings, ", "),
	)
	res, err := tx.Exec(ctx, insertQuery, valueArgs...)
	if err != nil {
		return FlushError("taxa", err)
	}
	c.taxaCreated += int(res.RowsAffected())

	rows, err := tx.Query(ctx,
		"SELECT id, gbif_taxon_key FROM taxa WHERE gbif_taxon_key = ANY($1)",
		keys)
	if err != nil {
		return FlushError("taxa", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		var key int64
		if err := rows.Scan(&id, &key); err != nil {
			return FlushError("taxa", err)
		}
		c.taxa[key] = id
	}
	if err := rows.Err(); err != nil {
		return FlushError("taxa", err)
	}

	c.pendingTaxa = make(map[int64]pendingTaxon)
	return nil
}
