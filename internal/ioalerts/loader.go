// Package ioalerts implements the AlertLoader interface: batch
// creation of users and alerts from a YAML definitions file. This is
// an impure I/O package that reads files and writes through GORM.
package ioalerts

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/thebinaryforest/ga2/pkg/db"
	"github.com/thebinaryforest/ga2/pkg/ga2"
	"github.com/thebinaryforest/ga2/pkg/schema"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// definitionsFile is the YAML shape of an alert definitions file.
type definitionsFile struct {
	Users  []userDef  `yaml:"users"`
	Alerts []alertDef `yaml:"alerts"`
}

type userDef struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
}

type alertDef struct {
	Name string `yaml:"name"`
	User string `yaml:"user"`

	EmailFrequency        string `yaml:"email_frequency"`
	AutoMarkSeenAfterDays *int   `yaml:"auto_mark_seen_after_days"`

	// TaxonKeys and DatasetKeys reference taxa and datasets by their
	// external natural keys. The referenced rows must already exist.
	TaxonKeys   []int64  `yaml:"taxa"`
	DatasetKeys []string `yaml:"datasets"`
}

// loader implements the AlertLoader interface.
type loader struct {
	operator db.Operator
}

// New creates a new AlertLoader.
func New(op db.Operator) ga2.AlertLoader {
	return &loader{operator: op}
}

// Load creates the users and alerts a definitions file describes.
// Users are matched by username, alerts by (owner, name); existing
// rows are left untouched.
func (l *loader) Load(
	ctx context.Context,
	path string,
) (ga2.AlertLoadStats, error) {
	var stats ga2.AlertLoadStats

	pool := l.operator.Pool()
	if pool == nil {
		return stats, NotConnectedError()
	}

	defs, err := readDefinitions(path)
	if err != nil {
		return stats, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{},
	)
	if err != nil {
		return stats, SaveError(err)
	}
	gormDB = gormDB.WithContext(ctx)

	users := make(map[string]*schema.User)
	for _, ud := range defs.Users {
		user := schema.User{Username: ud.Username, Email: ud.Email}
		res := gormDB.Where(
			schema.User{Username: ud.Username}).FirstOrCreate(&user)
		if res.Error != nil {
			return stats, SaveError(res.Error)
		}
		if res.RowsAffected > 0 {
			stats.UsersCreated++
		}
		users[user.Username] = &user
	}

	for _, ad := range defs.Alerts {
		created, err := l.createAlert(gormDB, ad, users)
		if err != nil {
			return stats, err
		}
		if created {
			stats.AlertsCreated++
		} else {
			stats.AlertsSkipped++
		}
	}

	slog.Info("Loaded alert definitions",
		"path", path,
		"users_created", stats.UsersCreated,
		"alerts_created", stats.AlertsCreated,
		"alerts_skipped", stats.AlertsSkipped,
	)

	return stats, nil
}

func readDefinitions(path string) (*definitionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, FileError(path, err)
	}

	var defs definitionsFile
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, FileError(path, err)
	}

	for _, ad := range defs.Alerts {
		if ad.Name == "" || ad.User == "" {
			return nil, DefinitionError(ad.Name, "name and user are required")
		}
		if ad.EmailFrequency != "" &&
			!schema.Frequency(ad.EmailFrequency).Valid() {
			return nil, DefinitionError(ad.Name, "unknown email_frequency")
		}
	}

	return &defs, nil
}

func (l *loader) createAlert(
	gormDB *gorm.DB,
	ad alertDef,
	users map[string]*schema.User,
) (bool, error) {
	owner, ok := users[ad.User]
	if !ok {
		// The owner may predate this file.
		owner = &schema.User{}
		err := gormDB.Where(
			schema.User{Username: ad.User}).First(owner).Error
		if err != nil {
			return false, ResolveError(ad.Name, "user", ad.User)
		}
		users[ad.User] = owner
	}

	var count int64
	err := gormDB.Model(&schema.Alert{}).
		Where("user_id = ? AND name = ?", owner.ID, ad.Name).
		Count(&count).Error
	if err != nil {
		return false, SaveError(err)
	}
	if count > 0 {
		return false, nil
	}

	alert := schema.Alert{
		UserID:         owner.ID,
		Name:           ad.Name,
		EmailFrequency: schema.FrequencyDaily,
	}
	if ad.EmailFrequency != "" {
		alert.EmailFrequency = schema.Frequency(ad.EmailFrequency)
	}
	alert.AutoMarkSeenAfterDays = 365
	if ad.AutoMarkSeenAfterDays != nil {
		alert.AutoMarkSeenAfterDays = *ad.AutoMarkSeenAfterDays
	}

	if len(ad.TaxonKeys) > 0 {
		err = gormDB.Where(
			"gbif_taxon_key IN ?", ad.TaxonKeys).Find(&alert.Taxa).Error
		if err != nil || len(alert.Taxa) != len(ad.TaxonKeys) {
			return false, ResolveError(ad.Name, "taxa", ad.TaxonKeys)
		}
	}
	if len(ad.DatasetKeys) > 0 {
		err = gormDB.Where("gbif_dataset_key IN ?",
			ad.DatasetKeys).Find(&alert.Datasets).Error
		if err != nil || len(alert.Datasets) != len(ad.DatasetKeys) {
			return false, ResolveError(ad.Name, "datasets", ad.DatasetKeys)
		}
	}

	if err := gormDB.Create(&alert).Error; err != nil {
		return false, SaveError(err)
	}
	return true, nil
}
