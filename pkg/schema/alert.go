package schema

import (
	"time"
)

// Frequency is how often an alert may notify its owner.
type Frequency string

const (
	FrequencyNever   Frequency = "never"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyNever, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Window returns the minimum elapsed time between notifications.
// ok is false for FrequencyNever and unknown values.
func (f Frequency) Window() (d time.Duration, ok bool) {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour, true
	case FrequencyWeekly:
		return 7 * 24 * time.Hour, true
	case FrequencyMonthly:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// Alert is a standing filter over taxa and datasets owned by a user.
// Empty filter sets mean "no restriction" on that dimension; non-empty
// sets restrict with OR inside a dimension and AND across dimensions.
type Alert struct {
	ID uint64 `gorm:"primaryKey"`

	UserID uint64 `gorm:"not null;index"`
	User   User

	Name string `gorm:"size:255;not null"`

	// Taxa restricts matching to these taxa when non-empty.
	Taxa []Taxon `gorm:"many2many:alert_taxa"`

	// Datasets restricts matching to these datasets when non-empty.
	Datasets []Dataset `gorm:"many2many:alert_datasets"`

	EmailFrequency Frequency `gorm:"size:10;not null;default:'daily'"`

	// AutoMarkSeenAfterDays removes tracked occurrences whose
	// observation date is strictly older than this many days. Zero
	// disables auto-acknowledgement.
	AutoMarkSeenAfterDays int `gorm:"not null;default:365"`

	// UnseenCount is denormalized and maintained by recount after every
	// sync, never by increment.
	UnseenCount int64 `gorm:"not null;default:0"`

	CreatedAt       time.Time
	LastEmailSentAt *time.Time
}

// ShouldNotify reports whether enough time has passed since the last
// notification for this alert to notify again. It is an elapsed-time
// gate, not a calendar schedule: "weekly" means at least 7x24h since
// the last send. An alert that never sent is always eligible (unless
// its frequency is never).
func (a *Alert) ShouldNotify(now time.Time) bool {
	window, ok := a.EmailFrequency.Window()
	if !ok {
		return false
	}
	if a.LastEmailSentAt == nil {
		return true
	}
	return now.Sub(*a.LastEmailSentAt) >= window
}
