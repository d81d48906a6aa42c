package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fz-restaurant/internal/database/models"
)

const activeSessionIndex = "ux_table_sessions_active"

type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// NewConnection opens the postgres store used in production.
func NewConnection(dsn string, pool PoolConfig) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DSN is required")
	}

	db, err := Open(postgres.Open(dsn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// Open wraps gorm.Open with the settings every dialect shares. Driver errors
// are translated so unique violations surface as gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newGormLogger routes gorm output through logrus so SQL warnings share the
// configured formatter. Missing rows are an expected outcome, not an error.
func newGormLogger() logger.Interface {
	return logger.New(log.StandardLogger(), logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Defaults seeds the settings row on an empty database.
type Defaults struct {
	RestaurantName string
	Latitude       float64
	Longitude      float64
	TotalTables    int
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Customer{},
		&models.CustomerAddress{},
		&models.Order{},
		&models.OrderItem{},
		&models.TableSession{},
		&models.TablePayment{},
		&models.RestaurantSettings{},
		&models.DeliveryZone{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate restaurant database: %w", err)
	}

	// At most one non-terminal session per table. Both postgres and sqlite
	// accept partial indexes in this form.
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON table_sessions (table_id) WHERE status NOT IN ('%s', '%s')",
		activeSessionIndex, models.SessionCompleted, models.SessionCleared,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create %s: %w", activeSessionIndex, err)
	}
	return nil
}

func Seed(db *gorm.DB, d Defaults) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.RestaurantSettings{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			settings := models.RestaurantSettings{
				ID:              1,
				RestaurantName:  d.RestaurantName,
				Latitude:        d.Latitude,
				Longitude:       d.Longitude,
				TotalTables:     d.TotalTables,
				DeliveryEnabled: true,
			}
			if err := tx.Create(&settings).Error; err != nil {
				return fmt.Errorf("failed to seed settings: %w", err)
			}
			log.WithField("tables", d.TotalTables).Info("Seeded restaurant settings")
		}

		if err := tx.Model(&models.DeliveryZone{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		zones := DefaultZones()
		if err := tx.Create(&zones).Error; err != nil {
			return fmt.Errorf("failed to seed delivery zones: %w", err)
		}
		log.WithField("zones", len(zones)).Info("Seeded delivery zones")
		return nil
	})
}

func DefaultZones() []models.DeliveryZone {
	return []models.DeliveryZone{
		{Name: "Nearby", MaxDistance: 1, DeliveryFee: decimal.Zero, EstimatedTime: 20, MinOrderAmount: decimal.NewFromInt(100), IsActive: true},
		{Name: "Local", MaxDistance: 3, DeliveryFee: decimal.NewFromInt(30), EstimatedTime: 30, MinOrderAmount: decimal.NewFromInt(200), IsActive: true},
		{Name: "City", MaxDistance: 5, DeliveryFee: decimal.NewFromInt(50), EstimatedTime: 40, MinOrderAmount: decimal.NewFromInt(300), IsActive: true},
		{Name: "Outskirts", MaxDistance: 8, DeliveryFee: decimal.NewFromInt(80), EstimatedTime: 55, MinOrderAmount: decimal.NewFromInt(500), IsActive: true},
	}
}
