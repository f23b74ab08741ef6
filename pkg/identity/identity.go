// Package identity derives the stable identifier for occurrence records.
//
// The identifier survives full truncate-and-reload imports: as long as a
// record keeps its source dataset key and its occurrenceID, it hashes to
// the same value no matter what gbifID or surrogate primary key it is
// republished under.
//
// The database computes the same value in a generated column
// (md5(source_dataset_key || '|' || occurrence_id)::uuid), so this
// function must stay byte-for-byte compatible with the md5() expression.
package identity

import (
	"crypto/md5"
	"strings"

	"github.com/google/uuid"
)

// Separator joins the dataset key and occurrenceID before hashing.
// Dataset keys containing the separator are rejected at resolution time
// (ValidateDatasetKey); GBIF dataset keys are UUIDs in practice, so the
// check is a guard against malformed upstream data, not an escaping
// scheme.
const Separator = "|"

// StableID computes the 128-bit stable identifier of an occurrence from
// its dataset natural key and its raw occurrenceID. Pure and
// deterministic: it depends on these two inputs only.
func StableID(datasetKey, occurrenceID string) uuid.UUID {
	sum := md5.Sum([]byte(datasetKey + Separator + occurrenceID))
	return uuid.UUID(sum)
}

// ValidateDatasetKey reports whether a dataset natural key is usable as
// an identity input. Keys containing the separator would make
// ("a|b","c") and ("a","b|c") collide.
func ValidateDatasetKey(key string) bool {
	return key != "" && !strings.Contains(key, Separator)
}
