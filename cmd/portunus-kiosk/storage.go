package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/kiosk/internal/config"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/db"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/credential"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/file"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/memory"
	"github.com/BrandonDHaskell/Portunus/kiosk/internal/portunus/store/sqlite"
)

// openMedium returns the configured credential medium and a func releasing
// whatever backs it.
func openMedium(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (store.Medium, func(), error) {
	size := credential.ImageSize(cfg.Capacity)

	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("memory storage: enrollments are lost on exit")
		return memory.New(size), func() {}, nil

	case config.StorageFile:
		m, err := file.Open(cfg.ImagePath, size)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close() }, nil

	case config.StorageSQLite:
		sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		writer := db.NewWorker(sqlDB)
		closeAll := func() {
			writer.Close()
			_ = sqlDB.Close()
		}
		return sqlite.NewMedium(sqlDB, writer, sqlite.DefaultImageName, size), closeAll, nil
	}

	return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
}

