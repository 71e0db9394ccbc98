package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/fastygo/sitetasks/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Open creates the database file if needed, applies the schema and returns a
// handle with foreign keys enabled so task deletes cascade.
func Open(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", cfg.Path, busy.Milliseconds())

	if err := migrateUp(dsn); err != nil {
		return nil, fmt.Errorf("sqlite migrations: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to sqlite", zap.String("path", cfg.Path))
	return db, nil
}

// migrateUp runs on its own handle because the migrate driver closes the
// database it is given.
func migrateUp(dsn string) error {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		db.Close()
		return err
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		db.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the handle and logs the result.
func Close(db *sql.DB, logger *zap.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil && logger != nil {
		logger.Warn("sqlite close failed", zap.Error(err))
		return
	}
	if logger != nil {
		logger.Info("sqlite closed")
	}
}
