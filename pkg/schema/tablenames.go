package schema

// Explicit table names keep the SQL in the engines independent from
// GORM's pluralization rules.

func (User) TableName() string            { return "users" }
func (Taxon) TableName() string           { return "taxa" }
func (Dataset) TableName() string         { return "datasets" }
func (Occurrence) TableName() string      { return "occurrences" }
func (Alert) TableName() string           { return "alerts" }
func (AlertOccurrence) TableName() string { return "alert_occurrences" }
