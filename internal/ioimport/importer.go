// Package ioimport implements the Importer interface: a
// truncate-and-reload of the occurrence snapshot from a Darwin Core
// archive. This is an impure I/O package that reads zip archives and
// performs bulk inserts.
package ioimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnparser"
	"github.com/jackc/pgx/v5"
	"github.com/thebinaryforest/ga2/internal/ioarchive"
	"github.com/thebinaryforest/ga2/pkg/config"
	"github.com/thebinaryforest/ga2/pkg/db"
	"github.com/thebinaryforest/ga2/pkg/ga2"
)

// PostgreSQL allows 65535 parameters per query. Occurrence rows carry
// 15 parameters each, so 4000 rows stay safely under the limit.
const insertChunkSize = 4000

// importer implements the Importer interface.
type importer struct {
	cfg      *config.Config
	operator db.Operator
	parser   gnparser.GNparser
}

// New creates a new Importer.
func New(cfg *config.Config, op db.Operator) ga2.Importer {
	prsCfg := gnparser.NewConfig()
	return &importer{
		cfg:      cfg,
		operator: op,
		parser:   gnparser.New(prsCfg),
	}
}

// Import replaces the occurrence snapshot with the contents of the
// archive at path. The occurrences table is truncated first; referenced
// taxa and datasets are created on first sight and never deleted.
func (imp *importer) Import(
	ctx context.Context,
	path string,
) (ga2.ImportStats, error) {
	var stats ga2.ImportStats

	pool := imp.operator.Pool()
	if pool == nil {
		return stats, NotConnectedError()
	}

	startTime := time.Now()
	slog.Info("Starting occurrence import", "archive", path)

	arc, err := ioarchive.Open(path)
	if err != nil {
		return stats, err
	}
	defer arc.Close()

	cache := newRefCache()
	if err := cache.load(ctx, pool); err != nil {
		return stats, err
	}
	slog.Info("Preloaded reference cache",
		"taxa", len(cache.taxa),
		"datasets", len(cache.datasets),
	)

	// The snapshot is replaced wholesale. A crashed run leaves a partial
	// snapshot; rerunning the import recovers it.
	_, err = pool.Exec(ctx, "TRUNCATE TABLE occurrences RESTART IDENTITY")
	if err != nil {
		return stats, TruncateError(err)
	}

	if err := imp.streamRows(ctx, arc, cache, &stats); err != nil {
		return stats, err
	}

	stats.TaxaCreated = cache.taxaCreated
	stats.DatasetsCreated = cache.datasetsCreated
	stats.Elapsed = time.Since(startTime)

	slog.Info("Import complete",
		"imported", stats.Imported,
		"skipped", stats.Skipped,
		"taxa_created", stats.TaxaCreated,
		"datasets_created", stats.DatasetsCreated,
		"duration", gnfmt.TimeString(stats.Elapsed.Seconds()),
	)
	gn.Info(`Import complete
Occurrences imported: %s, skipped %s.
New taxa: %s, new datasets: %s.
		Elapsed time: <em>%s</em>
`,
		humanize.Comma(int64(stats.Imported)),
		humanize.Comma(int64(stats.Skipped)),
		humanize.Comma(int64(stats.TaxaCreated)),
		humanize.Comma(int64(stats.DatasetsCreated)),
		gnfmt.TimeString(stats.Elapsed.Seconds()),
	)

	return stats, nil
}

func (imp *importer) streamRows(
	ctx context.Context,
	arc *ioarchive.Archive,
	cache *refCache,
	stats *ga2.ImportStats,
) error {
	var count int
	batch := make([]*candidate, 0, imp.cfg.Import.BatchSize)
	timeStart := time.Now().UnixNano()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := arc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		count++

		cand, rej := parseRow(arc.Columns(), row)
		if rej != nil {
			stats.Skipped++
			slog.Warn("Skipping occurrence row",
				"gbif_id", rej.gbifID, "reason", rej.reason)
			continue
		}

		if !cache.stageDataset(pendingDataset{
			datasetKey: cand.datasetKey,
			name:       cand.datasetName,
		}) {
			stats.Skipped++
			slog.Warn("Skipping occurrence row",
				"gbif_id", cand.gbifID, "reason", "invalid datasetKey")
			continue
		}
		cache.stageTaxon(pendingTaxon{
			taxonKey:       cand.taxonKey,
			scientificName: cand.scientificName,
			vernacularName: cand.vernacularName,
			canonicalName:  imp.canonicalName(cand.scientificName),
		})

		batch = append(batch, cand)
		if len(batch) >= imp.cfg.Import.BatchSize {
			if err := imp.flushBatch(ctx, cache, batch, stats); err != nil {
				return err
			}
			batch = batch[:0]
		}

		// Progress tracking: report every 100,000 rows.
		if count%100_000 == 0 {
			timeSpent := float64(time.Now().UnixNano()-timeStart) / 1_000_000_000
			speed := int64(float64(count) / timeSpent)
			fmt.Fprintf(os.Stderr, "\r%s", strings.Repeat(" ", 47))
			fmt.Fprintf(os.Stderr, "\rProcessed %s rows, %s rows/sec",
				humanize.Comma(int64(count)), humanize.Comma(speed))
		}
	}

	if len(batch) > 0 {
		if err := imp.flushBatch(ctx, cache, batch, stats); err != nil {
			return err
		}
	}

	// Clear progress line
	fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", 47))
	return nil
}

// canonicalName returns the gnparser simple canonical form, or an
// empty string for names that do not parse.
func (imp *importer) canonicalName(name string) string {
	p := imp.parser.ParseName(name)
	if !p.Parsed || p.Canonical == nil {
		return ""
	}
	return truncate(p.Canonical.Simple, 100)
}

// flushBatch creates the batch's unseen reference entities and inserts
// its occurrence rows inside one transaction. Rows whose references
// still cannot be resolved after the flush are skipped, not fatal.
func (imp *importer) flushBatch(
	ctx context.Context,
	cache *refCache,
	batch []*candidate,
	stats *ga2.ImportStats,
) error {
	tx, err := imp.operator.Pool().Begin(ctx)
	if err != nil {
		return InsertError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := cache.flush(ctx, tx); err != nil {
		return err
	}

	resolved := make([]*candidate, 0, len(batch))
	taxonIDs := make([]uint64, 0, len(batch))
	datasetIDs := make([]uint64, 0, len(batch))
	for _, cand := range batch {
		taxonID, ok := cache.resolveTaxon(cand.taxonKey)
		if !ok {
			stats.Skipped++
			slog.Warn("Skipping occurrence row",
				"gbif_id", cand.gbifID, "reason", "unresolved taxon")
			continue
		}
		datasetID, ok := cache.resolveDataset(cand.datasetKey)
		if !ok {
			stats.Skipped++
			slog.Warn("Skipping occurrence row",
				"gbif_id", cand.gbifID, "reason", "unresolved dataset")
			continue
		}
		resolved = append(resolved, cand)
		taxonIDs = append(taxonIDs, taxonID)
		datasetIDs = append(datasetIDs, datasetID)
	}

	for i := 0; i < len(resolved); i += insertChunkSize {
		end := min(i+insertChunkSize, len(resolved))
		n, err := insertOccurrences(
			ctx, tx,
			resolved[i:end], taxonIDs[i:end], datasetIDs[i:end],
		)
		if err != nil {
			return err
		}
		stats.Imported += n
	}

	if err := tx.Commit(ctx); err != nil {
		return InsertError(err)
	}
	return nil
}

func insertOccurrences(
	ctx context.Context,
	tx pgx.Tx,
	batch []*candidate,
	taxonIDs, datasetIDs []uint64,
) (int, error) {
	var valueStrings []string
	var valueArgs []any
	argIdx := 1

	for i, cand := range batch {
		placeholders := make([]string, 15)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", argIdx+j)
		}
		valueStrings = append(valueStrings,
			"("+strings.Join(placeholders, ", ")+")")
		valueArgs = append(valueArgs,
			cand.gbifID,
			cand.occurrenceID,
			datasetIDs[i],
			cand.datasetKey,
			taxonIDs[i],
			cand.date,
			cand.locationX,
			cand.locationY,
			cand.individualCount,
			cand.coordinateUncertainty,
			cand.locality,
			cand.municipality,
			cand.basisOfRecord,
			cand.recordedBy,
			cand.referencesURL,
		)
		argIdx += 15
	}

	insertQuery := fmt.Sprintf(
		`INSERT INTO occurrences
		   (gbif_id, occurrence_id, dataset_id, source_dataset_key,
		    taxon_id, date, location_x, location_y, individual_count,
		    coordinate_uncertainty_m, locality, municipality,
		    basis_of_record, recorded_by, references_url)
		 VALUES %s`,
		strings.Join(valueStrings, ", "),
	)

	res, err := tx.Exec(ctx, insertQuery, valueArgs...)
	if err != nil {
		return 0, InsertError(err)
	}
	return int(res.RowsAffected()), nil
}
