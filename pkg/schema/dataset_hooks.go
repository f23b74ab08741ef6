package schema

import (
	"errors"
	"fmt"

	"github.com/gnames/gn"
	"github.com/thebinaryforest/ga2/pkg/errcode"
	"gorm.io/gorm"
)

// BeforeUpdate rejects changes to GbifDatasetKey once the dataset
// exists. Occurrences denormalize the key into source_dataset_key, and
// their stable identifiers are hashed from it; a key change would
// silently orphan every tracked identity derived from this dataset.
func (d *Dataset) BeforeUpdate(tx *gorm.DB) error {
	if d.ID == 0 {
		return nil
	}

	var old Dataset
	err := tx.Session(&gorm.Session{NewDB: true}).
		Select("gbif_dataset_key").
		First(&old, d.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if old.GbifDatasetKey != d.GbifDatasetKey {
		return NaturalKeyChangeError(old.GbifDatasetKey, d.GbifDatasetKey)
	}
	return nil
}

// NaturalKeyChangeError creates an error for an attempt to mutate a
// dataset natural key after creation.
func NaturalKeyChangeError(oldKey, newKey string) error {
	msg := `Dataset key cannot be changed after creation

<em>Current key:</em> %s
<em>Attempted key:</em> %s

Occurrence records denormalize this key into their stable identifiers.
Create a new dataset instead of renaming this one.`

	vars := []any{oldKey, newKey}

	return &gn.Error{
		Code: errcode.SchemaNaturalKeyError,
		Msg:  msg,
		Vars: vars,
		Err: fmt.Errorf(
			"gbif_dataset_key is immutable: %q -> %q", oldKey, newKey),
	}
}
