// Package schema provides database schema models for ga2.
// Models are the single source of truth for the PostgreSQL schema,
// applied via GORM AutoMigrate.
package schema

import (
	"time"

	"github.com/google/uuid"
)

// User owns alerts. Authentication and account management live outside
// the core; the model carries only what alerts and notifications need.
type User struct {
	ID uint64 `gorm:"primaryKey"`

	// Username is the login name, unique across users.
	Username string `gorm:"size:150;not null;uniqueIndex"`

	// Email receives alert notifications. May be empty.
	Email string `gorm:"size:254;not null;default:''"`
}

// Taxon is a reference entity created lazily during import.
// Name fields are written once on creation and never updated by the
// core, even if later archives carry different spellings.
type Taxon struct {
	ID uint64 `gorm:"primaryKey"`

	// GbifTaxonKey is the external taxonomic identifier, the natural key
	// used to deduplicate taxa across imports.
	GbifTaxonKey int64 `gorm:"not null;uniqueIndex"`

	// ScientificName as provided by the first archive that referenced
	// this taxon.
	ScientificName string `gorm:"size:100;not null"`

	// VernacularName is the common name, may be empty.
	VernacularName string `gorm:"size:100;not null;default:''"`

	// CanonicalName is the gnparser simple canonical form of
	// ScientificName. Empty when the name does not parse.
	CanonicalName string `gorm:"size:100;not null;default:''"`
}

// Dataset is a reference entity for a source collection.
// GbifDatasetKey is immutable after creation: occurrences carry a
// denormalized copy of it, and changing it would orphan their stable
// identifiers. BeforeUpdate enforces this.
type Dataset struct {
	ID uint64 `gorm:"primaryKey"`

	// GbifDatasetKey is the external collection identifier, the natural
	// key used to deduplicate datasets across imports. Feeds the stable
	// identity hash, so it must never contain '|'.
	GbifDatasetKey string `gorm:"size:255;not null;uniqueIndex"`

	// Name as provided by the first archive that referenced this
	// dataset; falls back to the key itself when the archive has none.
	Name string `gorm:"type:text;not null"`
}

// Occurrence is one record of the current snapshot. The whole table is
// truncated and reloaded on every import; nothing may hold a foreign
// key to it.
type Occurrence struct {
	ID uint64 `gorm:"primaryKey"`

	// GbifID is the identifier assigned by the aggregator. Shown to
	// users, never relied upon as a stable identity (it changes when
	// upstream republishes).
	GbifID string `gorm:"size:100;not null;default:''"`

	// OccurrenceID is the raw occurrenceID field from the provider.
	// One of the two stable identity inputs.
	OccurrenceID string `gorm:"type:text;not null;default:''"`

	DatasetID uint64 `gorm:"not null"`

	// SourceDatasetKey is a denormalized copy of
	// Dataset.GbifDatasetKey. The redundancy is intentional: PostgreSQL
	// generated columns cannot reference other tables, so the value must
	// live locally for StableID to be computed at the database level.
	SourceDatasetKey string `gorm:"size:255;not null"`

	TaxonID uint64 `gorm:"not null;index"`

	// StableID is computed by the database on every write path,
	// including bulk inserts, so application code can never forget to
	// recompute it. Matches identity.StableID.
	StableID uuid.UUID `gorm:"->;type:uuid GENERATED ALWAYS AS (md5(source_dataset_key || '|' || occurrence_id)::uuid) STORED;index"`

	// Date is the observation date.
	Date time.Time `gorm:"type:date;not null"`

	// LocationX/LocationY are Web Mercator meters (EPSG:3857). Both nil
	// when the source row had no usable coordinates.
	LocationX *float64
	LocationY *float64

	IndividualCount        *int64
	CoordinateUncertainty  *float64 `gorm:"column:coordinate_uncertainty_m"`
	Locality               string   `gorm:"type:text;not null;default:''"`
	Municipality           string   `gorm:"type:text;not null;default:''"`
	BasisOfRecord          string   `gorm:"type:text;not null;default:''"`
	RecordedBy             string   `gorm:"type:text;not null;default:''"`
	ReferencesURL          string   `gorm:"type:text;not null;default:''"`
}

// AlertOccurrence tracks that an alert has not yet acknowledged a
// matching occurrence. It joins by stable identity value, not by
// foreign key: the occurrences table is wholly replaced on import and
// stale entries are removed by the sync cleanup phase instead.
type AlertOccurrence struct {
	ID uint64 `gorm:"primaryKey"`

	AlertID uint64 `gorm:"not null;uniqueIndex:idx_alert_occurrences_alert_stable"`

	StableID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_alert_occurrences_alert_stable;index"`

	// ObservationDate is denormalized from the matched occurrence; the
	// auto-acknowledge cutoff compares against it.
	ObservationDate time.Time `gorm:"type:date;not null"`

	// CreatedAt marks when the alert first became aware of the record.
	// Set once, never revised by later syncs.
	CreatedAt time.Time `gorm:"not null"`
}
