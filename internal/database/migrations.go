package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/homestock/internal/inventory"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationFloorNegativeQuantities = "2026-08-12_floor_negative_quantities"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationFloorNegativeQuantities, apply: floorNegativeQuantities},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// floorNegativeQuantities repairs rows written before quantity clamping was
// enforced at the service boundary.
func floorNegativeQuantities(db *gorm.DB) error {
	columns := []string{"qty_basement", "qty_garage", "qty_toilet", "qty_elsewhere"}
	for _, column := range columns {
		if err := db.Model(&inventory.Item{}).
			Where(column + " < 0").
			Update(column, 0).Error; err != nil {
			return err
		}
	}
	return nil
}
