package storage

import (
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moyoez/batchshare/tool"
)

// Connect opens the batch database. postgres:// DSNs use PostgreSQL, anything else is
// treated as a SQLite file. The schema is migrated on every start.
func Connect(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger: logger.New(tool.DefaultLogger.StandardLog(), logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		tool.DefaultLogger.Infof("Connecting to PostgreSQL...")
		dialector = postgres.Open(dsn)
	} else {
		tool.DefaultLogger.Infof("Using SQLite database: %s", dsn)
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&BatchRecord{})
}
