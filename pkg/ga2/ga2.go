// Package ga2 defines the contracts between the CLI and the engine
// implementations in internal/io*.
package ga2

import (
	"context"
	"time"
)

var (
	// Version is set by the build via ldflags.
	Version = "v0.0.0"
	// Build is the build timestamp, set via ldflags.
	Build = "n/a"
)

// ImportStats summarizes one import run.
type ImportStats struct {
	// Imported is the number of occurrence rows written to the store.
	Imported int

	// Skipped is the number of rows rejected by validation.
	Skipped int

	// TaxaCreated and DatasetsCreated count reference rows created
	// lazily during this run.
	TaxaCreated     int
	DatasetsCreated int

	Elapsed time.Duration
}

// Importer replaces the occurrence snapshot from a Darwin Core archive.
// The run truncates the occurrences table first; a crashed run is
// recovered by simply running Import again.
type Importer interface {
	// Import streams occurrence.txt from the archive at path into the
	// database in batch transactions, creating referenced taxa and
	// datasets on first sight.
	Import(ctx context.Context, path string) (ImportStats, error)
}

// SyncStats summarizes one alert sync run.
type SyncStats struct {
	// AlertsProcessed counts alerts whose per-alert unit committed.
	AlertsProcessed int

	// AlertsFailed counts alerts whose unit failed; their state is
	// untouched and the run continued past them.
	AlertsFailed int

	// NewMatches is the total of newly tracked occurrences.
	NewMatches int

	// AutoAcknowledged is the total of tracked occurrences removed by
	// the age cutoff.
	AutoAcknowledged int

	// StaleRemoved counts tracking rows whose stable identity vanished
	// from the current snapshot (cleanup phase).
	StaleRemoved int64

	// Notified counts alerts for which a notification was handed off.
	Notified int

	Elapsed time.Duration
}

// Notification is one alert digest handed off for delivery.
type Notification struct {
	AlertID   uint64
	AlertName string

	// Username and Email identify the alert's owner.
	Username string
	Email    string

	// NewMatches is the number of occurrences that entered the unseen
	// set during this sync; UnseenCount is the total after the sync.
	NewMatches  int
	UnseenCount int
}

// Notifier delivers alert digests. Delivery failures never fail the
// sync run that produced them.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Syncer reconciles all alerts against the current occurrence snapshot.
type Syncer interface {
	// Sync runs the stale cleanup phase, then one atomic unit per
	// alert. When notify is true, eligible alerts with new matches are
	// handed to the notifier.
	Sync(ctx context.Context, notify bool) (SyncStats, error)
}

// AlertLoadStats summarizes one alert definitions load.
type AlertLoadStats struct {
	UsersCreated  int
	AlertsCreated int

	// AlertsSkipped counts definitions that already existed for their
	// owner under the same name.
	AlertsSkipped int
}

// AlertLoader creates users and alerts from a definitions file. The
// admin surface normally owns alert data; this is the batch entry
// path for operators.
type AlertLoader interface {
	// Load reads alert definitions from the YAML file at path and
	// creates the missing users and alerts.
	Load(ctx context.Context, path string) (AlertLoadStats, error)
}

// SchemaManager handles database schema creation and migration via
// GORM AutoMigrate. Idempotent - safe to run multiple times.
type SchemaManager interface {
	// Create creates the initial database schema.
	Create(ctx context.Context) error

	// Migrate updates the database schema to the latest version.
	Migrate(ctx context.Context) error
}
