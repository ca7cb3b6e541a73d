package database

import (
	"fmt"
	"time"

	"weighbridge-backend/internal/config"
	"weighbridge-backend/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the configured database, migrates it and stores it in DB.
func Init(cfg *config.Config) error {
	db, err := Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	zap.L().Info("database ready", zap.String("driver", cfg.DatabaseDriver))
	return nil
}

// Open connects without migrating. Timestamps are kept in UTC on both drivers.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	if driver == config.DriverSQLite {
		// SQLite serialises writers; one connection also keeps :memory: databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates every table and seeds the settings row.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Record{},
		&models.Expense{},
		&models.Setting{},
		&models.AuditLog{},
		&models.MonthlyReport{},
		&models.DailyReport{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	var count int64
	if err := db.Model(&models.Setting{}).Where("id = ?", models.SettingID).Count(&count).Error; err != nil {
		return fmt.Errorf("check settings: %w", err)
	}
	if count == 0 {
		seed := models.Setting{
			ID:            models.SettingID,
			VehiclePrices: map[string]float64{},
			BusinessNames: []string{},
		}
		if err := db.Create(&seed).Error; err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
		zap.L().Info("settings row created")
	}
	return nil
}

// OpenInMemory returns a migrated private SQLite database, used by tests and local demos.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open(config.DriverSQLite, ":memory:")
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
