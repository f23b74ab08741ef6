package ioimport

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thebinaryforest/ga2/internal/ioarchive"
	"github.com/thebinaryforest/ga2/pkg/coord"
)

// candidate is a parsed, validated occurrence row waiting for its
// reference entities to be resolved at the batch boundary.
type candidate struct {
	gbifID       string
	occurrenceID string

	taxonKey   int64
	datasetKey string

	// Name fields travel with the candidate so a previously unseen
	// taxon or dataset can be staged with first-write-wins attributes.
	scientificName string
	vernacularName string
	datasetName    string

	date time.Time

	locationX *float64
	locationY *float64

	individualCount       *int64
	coordinateUncertainty *float64

	locality      string
	municipality  string
	basisOfRecord string
	recordedBy    string
	referencesURL string
}

// rejection explains why a row was skipped. gbifID may be empty when
// the source row had none.
type rejection struct {
	gbifID string
	reason string
}

// parseRow converts one raw occurrence row into a candidate or a
// rejection. It never panics past the caller: every failure path is a
// typed rejection, and optional fields that fail to parse are treated
// as absent rather than fatal.
func parseRow(cols ioarchive.Columns, row []string) (*candidate, *rejection) {
	gbifID := strings.TrimSpace(cols.Get(row, "gbifID"))

	taxonKeyStr := strings.TrimSpace(cols.Get(row, "speciesKey"))
	if taxonKeyStr == "" {
		return nil, &rejection{gbifID: gbifID, reason: "missing speciesKey"}
	}
	taxonKey, err := strconv.ParseInt(taxonKeyStr, 10, 64)
	if err != nil {
		return nil, &rejection{gbifID: gbifID, reason: "malformed speciesKey"}
	}

	date, ok := parseDate(cols, row)
	if !ok {
		return nil, &rejection{gbifID: gbifID, reason: "missing date"}
	}

	datasetKey := strings.TrimSpace(cols.Get(row, "datasetKey"))
	if datasetKey == "" {
		return nil, &rejection{gbifID: gbifID, reason: "missing datasetKey"}
	}

	res := &candidate{
		gbifID:       gbifID,
		occurrenceID: strings.TrimSpace(cols.Get(row, "occurrenceID")),
		taxonKey:     taxonKey,
		datasetKey:   datasetKey,
		date:         date,

		scientificName: truncate(
			strings.TrimSpace(cols.Get(row, "species")), 100),
		vernacularName: truncate(
			strings.TrimSpace(cols.Get(row, "vernacularName")), 100),
		datasetName: strings.TrimSpace(cols.Get(row, "datasetName")),

		individualCount: parseInt(cols.Get(row, "individualCount")),
		coordinateUncertainty: parseFloat(
			cols.Get(row, "coordinateUncertaintyInMeters")),

		locality:      strings.TrimSpace(cols.Get(row, "locality")),
		municipality:  strings.TrimSpace(cols.Get(row, "municipality")),
		basisOfRecord: strings.TrimSpace(cols.Get(row, "basisOfRecord")),
		recordedBy:    strings.TrimSpace(cols.Get(row, "recordedBy")),
		referencesURL: strings.TrimSpace(cols.Get(row, "references")),
	}

	if res.scientificName == "" {
		res.scientificName = fmt.Sprintf("Taxon %d", taxonKey)
	}
	if res.datasetName == "" {
		res.datasetName = datasetKey
	}

	res.locationX, res.locationY = parseLocation(cols, row)

	return res, nil
}

// parseDate resolves the observation date: eventDate first (a
// '/'-delimited range contributes its first endpoint), then the
// year/month/day triple, all three required.
func parseDate(cols ioarchive.Columns, row []string) (time.Time, bool) {
	eventDate := strings.TrimSpace(cols.Get(row, "eventDate"))
	if eventDate != "" {
		first, _, _ := strings.Cut(eventDate, "/")
		if d, ok := parseCalendarDate(first); ok {
			return d, true
		}
	}

	year := parseInt(cols.Get(row, "year"))
	month := parseInt(cols.Get(row, "month"))
	day := parseInt(cols.Get(row, "day"))
	if year == nil || month == nil || day == nil {
		return time.Time{}, false
	}
	return validDate(int(*year), int(*month), int(*day))
}

// parseCalendarDate parses an ISO calendar date, tolerating a trailing
// time component ("2024-01-15T10:00:00Z").
func parseCalendarDate(s string) (time.Time, bool) {
	parts := strings.SplitN(s, "-", 4)
	if len(parts) < 3 {
		return time.Time{}, false
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	dayPart, _, _ := strings.Cut(parts[2], "T")
	day, err3 := strconv.Atoi(dayPart)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	return validDate(year, month, day)
}

// validDate builds a date and rejects inputs that time.Date would
// silently normalize (2024-02-31 and friends).
func validDate(year, month, day int) (time.Time, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// parseLocation reprojects decimalLatitude/decimalLongitude to Web
// Mercator. Missing or unprojectable coordinates make the location
// absent, never the row rejected.
func parseLocation(cols ioarchive.Columns, row []string) (*float64, *float64) {
	latStr := strings.TrimSpace(cols.Get(row, "decimalLatitude"))
	lonStr := strings.TrimSpace(cols.Get(row, "decimalLongitude"))
	if latStr == "" || lonStr == "" {
		return nil, nil
	}

	lat, err1 := strconv.ParseFloat(latStr, 64)
	lon, err2 := strconv.ParseFloat(lonStr, 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}

	x, y, err := coord.ToWebMercator(lat, lon)
	if err != nil {
		return nil, nil
	}
	return &x, &y
}

// parseInt parses an optional integer field; empty or malformed values
// are absent.
func parseInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseFloat parses an optional floating point field; empty or
// malformed values are absent.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// truncate limits a string to max runes, matching column widths.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
