package db

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Edward-Gomez-Q/sumajflow-transport/internal/config"
)

// New opens the relational database, applies pool settings and runs the
// migrations.
func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	gormLogLevel := gormlogger.Silent
	if cfg.Environment == "development" {
		gormLogLevel = gormlogger.Warn
	}

	database, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	if err := runMigrations(database); err != nil {
		return nil, err
	}
	log.Info().Msg("database migrations applied")

	return database, nil
}
