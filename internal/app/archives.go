package app

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"

	"github.com/OCAP2/facecsv/internal/api"
	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/influx"
	"github.com/OCAP2/facecsv/internal/storage"
	pgstorage "github.com/OCAP2/facecsv/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/facecsv/internal/storage/sqlite"
)

// Archive backend names accepted in storage.archives.
const (
	ArchiveSQLite   = "sqlite"
	ArchivePostgres = "postgres"
	ArchiveInflux   = "influx"
	ArchiveUpload   = "upload"
)

// archiveNames returns the configured backends in order, without duplicates.
// influx.enabled and api.upload switch their archive on as well.
func archiveNames(sc config.StorageConfig, ic config.InfluxConfig, ac config.APIConfig) []string {
	names := make([]string, 0, len(sc.Archives)+2)
	add := func(n string) {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	for _, n := range sc.Archives {
		add(n)
	}
	if ic.Enabled {
		add(ArchiveInflux)
	}
	if ac.Upload {
		add(ArchiveUpload)
	}
	return names
}

// createArchive builds one backend. Relative paths resolve against baseDir.
func createArchive(name, baseDir string, log zerolog.Logger) (storage.Backend, error) {
	switch name {
	case ArchiveSQLite:
		path := config.GetStorageConfig().SQLite.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		b, err := sqlitestorage.New(sqlitestorage.Config{Path: path}, log)
		if err != nil {
			return nil, err
		}
		return b, nil

	case ArchivePostgres:
		return pgstorage.New(pgstorage.Dependencies{
			Config: config.GetDBConfig(),
			Logger: log,
		}), nil

	case ArchiveInflux:
		backup := filepath.Join(baseDir, "influx_backup.log.gz")
		return influx.NewManager(config.GetInfluxConfig(), log, backup), nil

	case ArchiveUpload:
		ac := config.GetAPIConfig()
		return api.NewArchive(api.New(ac.ServerURL, ac.APIKey), ac.Tag), nil

	default:
		return nil, fmt.Errorf("unknown archive backend: %s", name)
	}
}
