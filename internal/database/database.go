package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sjperalta/society-ledger/internal/config"
	pkgLogger "github.com/sjperalta/society-ledger/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the ledger database and sizes its pool. SQL is logged at
// Info in development; elsewhere only slow queries and errors are.
func Connect(databaseURL string, pool config.DBPool, environment string) (*gorm.DB, error) {
	level := logger.Warn
	if environment == "development" {
		level = logger.Info
	}

	// Engine writes run in explicit WithinTx units, so gorm's implicit one is skipped
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:                 pkgLogger.NewGormLogger(level, pool.SlowQuery),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ledger database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping ledger database: %w", err)
	}

	pkgLogger.Info("Database pool configured",
		"max_open", pool.MaxOpenConns, "max_idle", pool.MaxIdleConns, "slow_query", pool.SlowQuery)
	return db, nil
}
