package services

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/repo"
)

var ctx = context.Background()

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "svc.db"), repo.Options{LogLevel: logger.Silent})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func ptr[T any](v T) *T { return &v }

// withAfterMiss installs fn as the executor's miss hook for the duration of
// the test.
func withAfterMiss(t *testing.T, fn func(ctx context.Context, resource string)) {
	t.Helper()
	prev := afterMiss
	afterMiss = func(ctx context.Context, resource string, _ uuid.UUID) { fn(ctx, resource) }
	t.Cleanup(func() { afterMiss = prev })
}

var (
	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error
)

// postgresServiceDB returns a migrated PostgreSQL handle or skips the test
// when TEST_POSTGRES_DSN is unset. Rows are shared between tests, so callers
// use identities and titles of their own.
func postgresServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	pgOnce.Do(func() {
		pgDB, pgErr = repo.OpenPostgres(dsn, repo.Options{LogLevel: logger.Silent})
		if pgErr == nil {
			pgErr = repo.AutoMigrate(pgDB)
		}
	})
	if pgErr != nil {
		t.Fatalf("postgres: %v", pgErr)
	}
	return pgDB
}

// stores lists the databases concurrency tests run against.
var stores = []struct {
	name string
	open func(t *testing.T) *gorm.DB
}{
	{"sqlite", newServiceDB},
	{"postgres", postgresServiceDB},
}

// uniqueUser returns an identity unlikely to collide with rows left on a
// shared database by other runs.
func uniqueUser() int64 { return rand.Int64N(1<<40) + 1000 }
