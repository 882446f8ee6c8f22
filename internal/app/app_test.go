package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/dispatcher"
	"github.com/OCAP2/facecsv/internal/handlers"
	sqlitestorage "github.com/OCAP2/facecsv/internal/storage/sqlite"
	"github.com/OCAP2/facecsv/pkg/core"
)

func loadConfig(t *testing.T, body string) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0644))
	require.NoError(t, config.Load(dir))
	return dir
}

func TestArchiveNames(t *testing.T) {
	names := archiveNames(
		config.StorageConfig{Archives: []string{"sqlite", "influx", "sqlite"}},
		config.InfluxConfig{Enabled: true},
		config.APIConfig{Upload: true},
	)
	assert.Equal(t, []string{"sqlite", "influx", "upload"}, names)

	assert.Empty(t, archiveNames(config.StorageConfig{}, config.InfluxConfig{}, config.APIConfig{}))
}

func TestCreateArchive_Unknown(t *testing.T) {
	_, err := createArchive("s3", t.TempDir(), zerolog.Nop())
	assert.ErrorContains(t, err, "unknown archive backend: s3")
}

func TestNew_HostTickedWithSQLiteArchive(t *testing.T) {
	dir := loadConfig(t, `{
		"recorder": { "subject": "iPhone", "exportRoot": "out" },
		"storage": { "archives": ["sqlite", "bogus"], "sqlite": { "path": "faces.db" } }
	}`)

	a, err := New(context.Background(), Options{BaseDir: dir, StoreLog: zerolog.Nop()})
	require.NoError(t, err)

	require.Len(t, a.Archives, 1)
	assert.IsType(t, &sqlitestorage.Backend{}, a.Archives[0])
	require.NotNil(t, a.Manual)
	assert.Nil(t, a.Relay)
	assert.True(t, a.Dispatcher.HasHandler(handlers.CmdTick))
	assert.Equal(t, filepath.Join(dir, "out", "LiveLinkExports"), a.Recorder.SaveFolder())

	a.Registry.SetStatic("iPhone", core.StaticData{PropertyNames: []string{"JawOpen"}})
	a.Registry.PushFrame("iPhone", core.FrameData{
		SceneTime: core.QualifiedFrameTime{Frame: 3, Rate: core.FrameRate30},
		Values:    []float64{0.5},
	})

	for _, cmd := range []string{handlers.CmdStart, handlers.CmdTick, handlers.CmdStop, handlers.CmdExport} {
		_, err := a.Dispatcher.Dispatch(dispatcher.Event{Command: cmd})
		require.NoError(t, err, cmd)
	}

	data, err := os.ReadFile(a.Recorder.OutputPath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Timecode,NumProperties,JawOpen\n"))

	stored, err := a.Archives[0].(*sqlitestorage.Backend).List("iPhone", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	require.NoError(t, a.Close())
}

func TestNew_TimerMode(t *testing.T) {
	dir := loadConfig(t, `{ "recorder": { "tickMode": "timer", "tickInterval": "5ms" } }`)

	a, err := New(context.Background(), Options{BaseDir: dir, StoreLog: zerolog.Nop()})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Manual)
	assert.False(t, a.Dispatcher.HasHandler(handlers.CmdTick))
	assert.Empty(t, a.Archives)
	require.NotNil(t, a.Monitor)
	assert.True(t, a.Monitor.IsRunning())
}

func TestNew_MonitorDisabled(t *testing.T) {
	dir := loadConfig(t, `{ "monitor": { "enabled": false } }`)

	a, err := New(context.Background(), Options{BaseDir: dir, StoreLog: zerolog.Nop()})
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Monitor)
}

func TestNew_RequiredSourceUnreachable(t *testing.T) {
	dir := loadConfig(t, `{ "source": { "url": "ws://127.0.0.1:1/livelink" } }`)

	_, err := New(context.Background(), Options{BaseDir: dir, StoreLog: zerolog.Nop(), RequireSource: true})
	assert.ErrorContains(t, err, "failed to connect to source")
}

func TestNew_OptionalSourceUnreachable(t *testing.T) {
	dir := loadConfig(t, `{ "source": { "enabled": true, "url": "ws://127.0.0.1:1/livelink" } }`)

	a, err := New(context.Background(), Options{BaseDir: dir, StoreLog: zerolog.Nop()})
	require.NoError(t, err)
	assert.Nil(t, a.Relay)
	require.NoError(t, a.Close())
}

func TestNew_UploadArchiveSkippedWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	dir := loadConfig(t, `{ "api": { "upload": true, "serverUrl": "`+srv.URL+`" } }`)

	a, err := New(context.Background(), Options{BaseDir: dir, StoreLog: zerolog.Nop()})
	require.NoError(t, err)
	defer a.Close()
	assert.Empty(t, a.Archives)
}
