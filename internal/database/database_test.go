package database

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.DBConfig{
		Host: "db", Port: "5433", Username: "u", Password: "p", Database: "faces",
	})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=faces sslmode=disable", dsn)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("", zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestOpenSQLite_SetupIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, Setup(db, zerolog.Nop()))
	require.NoError(t, Setup(db, zerolog.Nop()))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}

	var infos []model.ArchiveInfo
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, SchemaVersion, infos[0].SchemaVersion)
}
