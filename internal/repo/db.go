// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, plus schema migrations.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-recipes-backend/internal/domain"
)

// Supported values of the DB_DRIVER setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlitePragmas are applied through the DSN so every pooled connection gets them.
var sqlitePragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
}

// Options tunes the connection pool and the GORM logger.
type Options struct {
	// MaxOpenConns caps open connections. Zero means 1 for SQLite (single
	// writer) and 10 for PostgreSQL.
	MaxOpenConns int
	// LogLevel is the GORM logger level; zero means logger.Warn.
	LogLevel logger.LogLevel
}

// Open dispatches to OpenSQLite or OpenPostgres by driver name.
func Open(driver, sqlitePath, postgresDSN string, opts Options) (*gorm.DB, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		return OpenSQLite(sqlitePath, opts)
	case DriverPostgres:
		return OpenPostgres(postgresDSN, opts)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database with foreign keys enforced.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + strings.Join(sqlitePragmas, "&")

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, err
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// OpenPostgres connects to PostgreSQL using a pgx DSN.
func OpenPostgres(dsn string, opts Options) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: empty DSN")
	}
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func gormConfig(opts Options) *gorm.Config {
	lvl := opts.LogLevel
	if lvl == 0 {
		lvl = logger.Warn
	}
	return &gorm.Config{
		Logger:  logger.Default.LogMode(lvl),
		NowFunc: now,
	}
}

// now stamps rows at the coarsest precision of every supported store
// (PostgreSQL keeps microseconds) so a row read back equals the one written.
// The zone stays local because pgx returns timestamptz values in time.Local.
func now() time.Time {
	return time.Now().Truncate(time.Microsecond)
}

// AutoMigrate creates or updates every table of the application.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Recipe{},
		&domain.Ingredient{},
		&domain.RecipeIngredient{},
		&domain.Comment{},
		&domain.ShoppingList{},
		&domain.ShoppingListItem{},
	)
	if err != nil {
		return err
	}
	return backfillTitleSearch(db)
}

// backfillTitleSearch folds the titles of rows stored before the search
// column existed.
func backfillTitleSearch(db *gorm.DB) error {
	var batch []domain.Recipe
	w := db.Session(&gorm.Session{NewDB: true})
	return db.Model(&domain.Recipe{}).
		Select("id", "title").
		Where("title_search = ? AND title <> ?", "", "").
		FindInBatches(&batch, 200, func(*gorm.DB, int) error {
			for _, r := range batch {
				err := w.Model(&domain.Recipe{}).
					Where("id = ?", r.ID).
					UpdateColumn("title_search", domain.FoldTitle(r.Title)).Error
				if err != nil {
					return fmt.Errorf("backfill title_search: %w", err)
				}
			}
			return nil
		}).Error
}

// isPostgres reports whether db talks to PostgreSQL.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == DriverPostgres
}
