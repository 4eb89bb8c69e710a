package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/internal/domain"
	"github.com/keshsri/tinylinker/pkg/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 5 * time.Second
)

// gormWriter wraps our custom logger to implement gorm's logger.Writer interface
type gormWriter struct {
	log *logger.Logger
}

// Printf implements the logger.Writer interface
func (w *gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(fmt.Sprintf(format, args...))
}

// Open connects to the relational backend selected by cfg.StoreBackend
// (postgres or sqlite), configures pooling and migrates the schema.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		dialector = postgres.Open(cfg.DSN() + " TimeZone=UTC")
	case config.BackendSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("backend %q is not relational", cfg.StoreBackend)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.New(&gormWriter{log: log}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}

	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = gorm.Open(dialector, gormConfig)
		if err == nil {
			break
		}

		log.Warn("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.StoreBackend == config.BackendSQLite {
		// sqlite serializes writers; one connection avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("Database connection established successfully", "backend", cfg.StoreBackend)
	return db, nil
}

// Migrate creates or updates the tables of every persisted record
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.ShortLink{}, &domain.ClickEvent{}, &domain.RateLimitWindow{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
