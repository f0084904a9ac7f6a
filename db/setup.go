package db

import (
	"time"

	"github.com/offolaunch/launchtrack/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func ConnectDatabase(dsn string, lg *zap.SugaredLogger) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})

	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()

	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	lg.Infow("database connected")

	return conn, nil
}

// MigrateDatabase creates or upgrades every table. AutoMigrate is additive,
// so running it against an existing schema only adds missing columns and indexes.
func MigrateDatabase(conn *gorm.DB) error {
	for _, model := range models.All() {
		if err := conn.AutoMigrate(model); err != nil {
			return err
		}
	}

	return nil
}
