package gormstorage

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OCAP2/facecsv/internal/model"
	"github.com/OCAP2/facecsv/internal/storage"
	"github.com/OCAP2/facecsv/pkg/core"
)

var (
	_ storage.Backend = (*Backend)(nil)
	_ storage.Named   = (*Backend)(nil)
)

func newMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(Dependencies{DB: newMemoryDB(t), Logger: zerolog.Nop()})
	require.NoError(t, b.Init())
	return b
}

func recording(subject string, exported time.Time, values ...float64) *core.Recording {
	return &core.Recording{
		Subject:     subject,
		FilePath:    "/saved/" + subject + ".csv",
		ColumnNames: []string{"JawOpen"},
		Frames: []core.FrameRecord{
			{
				Timecode:   "00:00:00:00.000",
				SceneTime:  core.QualifiedFrameTime{Rate: core.FrameRate30},
				Values:     values,
				CapturedAt: exported.Add(-time.Second),
			},
			{
				Timecode:   "00:00:00:01.000",
				SceneTime:  core.QualifiedFrameTime{Frame: 1, Rate: core.FrameRate30},
				Values:     values,
				CapturedAt: exported,
			},
		},
		StartedAt:  exported.Add(-time.Minute),
		ExportedAt: exported,
	}
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{Logger: zerolog.Nop()})
	assert.ErrorIs(t, b.Init(), ErrNoDB)
	assert.ErrorIs(t, b.StoreRecording(&core.Recording{}), ErrNoDB)
	_, err := b.Get(1)
	assert.ErrorIs(t, err, ErrNoDB)
}

func TestStoreRecording_RoundTrip(t *testing.T) {
	b := newBackend(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, b.StoreRecording(recording("iPhone", now, 0.75)))

	var frames int64
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&frames).Error)
	assert.Equal(t, int64(2), frames)

	got, err := b.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "iPhone", got.Subject)
	assert.Equal(t, []string{"JawOpen"}, got.ColumnNames)
	require.Len(t, got.Frames, 2)
	assert.Equal(t, "00:00:00:01.000", got.Frames[1].Timecode)
	assert.Equal(t, []float64{0.75}, got.Frames[1].Values)
	assert.Equal(t, core.FrameRate30, got.Frames[1].SceneTime.Rate)
}

func TestGet_Missing(t *testing.T) {
	b := newBackend(t)
	_, err := b.Get(42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestList(t *testing.T) {
	b := newBackend(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, b.StoreRecording(recording("a", base, 1)))
	require.NoError(t, b.StoreRecording(recording("b", base.Add(time.Hour), 2)))
	require.NoError(t, b.StoreRecording(recording("a", base.Add(2*time.Hour), 3)))

	all, err := b.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint(3), all[0].ID)
	assert.Empty(t, all[0].Frames)

	onlyA, err := b.List("a", 1)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, uint(3), onlyA[0].ID)
}

func TestStoreRecording_ReexportReplaces(t *testing.T) {
	b := newBackend(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	first := recording("iPhone", now, 0.5)
	require.NoError(t, b.StoreRecording(first))

	again := recording("iPhone", now.Add(time.Second), 0.5)
	again.StartedAt = first.StartedAt
	again.Frames = again.Frames[:1]
	require.NoError(t, b.StoreRecording(again))

	all, err := b.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].FrameCount)

	var frames int64
	require.NoError(t, b.DB().Model(&model.Frame{}).Count(&frames).Error)
	assert.Equal(t, int64(1), frames)

	got, err := b.Get(all[0].ID)
	require.NoError(t, err)
	assert.True(t, got.ExportedAt.Equal(now.Add(time.Second)))
}
