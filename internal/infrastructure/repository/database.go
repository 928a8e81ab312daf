package repository

import (
	"fmt"
	"strings"
	"time"

	"target-onchain-shopify-app/internal/infrastructure/repository/entity"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Supported values for DATABASE_DRIVER
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// zerologWriter routes GORM's logger through zerolog
type zerologWriter struct {
	logger zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.logger.Debug().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenFrameDB opens the relational database holding frames and migrates its schema
func OpenFrameDB(driver, dsn string, logger zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		if dsn == "" {
			dsn = "file:frames.db?_busy_timeout=5000"
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.New(mysql.Config{
			DSN:                       dsn,
			SkipInitializeWithVersion: true,
		})
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLogger := gormlogger.New(
		zerologWriter{logger: logger.With().Str("component", "gorm").Logger()},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the frames table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.FrameModel{}); err != nil {
		return fmt.Errorf("failed to migrate frames: %w", err)
	}
	return nil
}
