package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Oliunekits/price-tracker-bot/internal/config"
	"github.com/Oliunekits/price-tracker-bot/internal/models"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// WaitInterval is the pause between two readiness probes
var WaitInterval = time.Second

// Open connects to the configured database, waits until it answers and
// migrates the schema
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := waitReady(ctx, db, cfg.WaitMaxTries, log); err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("database initialized", zap.String("driver", cfg.Driver))
	return db, nil
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Tracker{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "postgres":
		return postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        cfg.DSN,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func waitReady(ctx context.Context, db *gorm.DB, maxTries int, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	if maxTries < 1 {
		maxTries = 1
	}

	for attempt := 1; ; attempt++ {
		err = sqlDB.PingContext(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxTries {
			return fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
		}
		log.Info("waiting for database", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("database wait cancelled: %w", ctx.Err())
		case <-time.After(WaitInterval):
		}
	}
}
