// Package sqlitestorage archives recordings into a local SQLite file.
package sqlitestorage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/OCAP2/facecsv/internal/database"
	gormstorage "github.com/OCAP2/facecsv/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path string // database.MemoryPath for an in-memory archive
}

// Backend wraps the GORM backend and owns the SQLite connection.
type Backend struct {
	*gormstorage.Backend
	cfg Config
}

// New opens the database at cfg.Path. Init must be called before use.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite(cfg.Path, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		cfg:     cfg,
	}, nil
}

// Name implements storage.Named.
func (b *Backend) Name() string {
	return "sqlite"
}

// Close closes the connection.
func (b *Backend) Close() error {
	sqlDB, err := b.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
