package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const defaultPath = "./data/portunus.db"

type Config struct {
	Path   string // e.g. "./data/portunus.db"
	Logger logrus.FieldLogger
}

// Open opens the kiosk database, applies migrations and returns a pool
// limited to a single connection.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	// A kiosk loses power without warning: keep the rollback journal and
	// full fsync rather than WAL + NORMAL.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(DELETE)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		cfg.Path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	applied, err := migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, name := range applied {
		cfg.Logger.WithField("migration", name).Info("applied migration")
	}

	return db, nil
}
