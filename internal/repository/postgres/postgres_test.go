package postgres

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/keshsri/tinylinker/internal/config"
	"github.com/keshsri/tinylinker/internal/repository"
	"github.com/keshsri/tinylinker/internal/repository/repotest"
	"github.com/keshsri/tinylinker/pkg/logger"
)

// setupTestDB opens a private in-memory sqlite database with the schema migrated
func setupTestDB(t *testing.T) *gorm.DB {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	return db
}

func TestGormStoreContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) *repository.Store {
		return NewStore(setupTestDB(t))
	}, true)
}

func TestMigrateCreatesRateLimitTable(t *testing.T) {
	db := setupTestDB(t)

	assert.True(t, db.Migrator().HasTable("short_links"))
	assert.True(t, db.Migrator().HasTable("click_events"))
	assert.True(t, db.Migrator().HasTable("rate_limit_windows"))
}

func TestOpen_SQLiteBackend(t *testing.T) {
	cfg := &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   "file:open_test?mode=memory&cache=shared",
	}

	db, err := Open(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)

	store := NewStore(db)
	defer store.Close()

	assert.True(t, db.Migrator().HasTable("short_links"))
}

func TestOpen_RejectsNonRelationalBackend(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreBackend: config.BackendMemory}, logger.NewNop())
	assert.Error(t, err)
}
