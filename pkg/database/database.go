package database

import (
	"batchgen/config"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDBConnection opens the run history database. It returns a nil handle
// when DATABASE_URL is unset so run history stays optional.
func NewDBConnection(appConfig *config.AppConfig, logger *zap.Logger) (*gorm.DB, error) {
	if appConfig.DatabaseURL == "" {
		logger.Debug("DATABASE_URL not set, run history disabled")
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(appConfig.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.AutoMigrate(&BatchRun{}, &TestCase{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run history tables: %w", err)
	}
	logger.Debug("connected to database")
	return db, nil
}
