// Package archive keeps raw provider payloads fetched during a run in
// Postgres, replacing ad-hoc JSON dumps with queryable history. The
// archive is optional; a nil *Store is valid and inert.
package archive

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

// zapWriter adapts zap.Logger to logger.Writer interface
type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Printf(format string, args ...interface{}) {
	w.logger.Sugar().Infof(format, args...)
}

// Open connects to the archive database and migrates the snapshot tables
func Open(cfg *config.ArchiveConfig, logLevel string) (*gorm.DB, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Snapshot archive disabled")
		return nil, nil
	}

	var gormLogLevel logger.LogLevel
	switch logLevel {
	case "DEBUG", "debug":
		gormLogLevel = logger.Info
	case "ERROR", "error":
		gormLogLevel = logger.Silent
	default:
		gormLogLevel = logger.Warn
	}

	writer := &zapWriter{logger: logging.GetLogger()}
	gormLogger := logger.New(
		writer,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping archive database: %w", err)
	}

	if err := db.AutoMigrate(&models.RunRecord{}, &models.PostSnapshot{}, &models.StatSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive schema: %w", err)
	}

	logging.GetLogger().Info("Snapshot archive connected")

	return db, nil
}
