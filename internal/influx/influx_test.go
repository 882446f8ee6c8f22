package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/facecsv/internal/config"
	"github.com/OCAP2/facecsv/internal/storage"
	"github.com/OCAP2/facecsv/pkg/core"
)

var _ storage.Backend = (*Manager)(nil)

func testRecording() *core.Recording {
	at := time.Unix(1700000000, 0).UTC()
	return &core.Recording{
		Subject:     "iPhone",
		ColumnNames: []string{"JawOpen"},
		Frames: []core.FrameRecord{
			{
				Timecode:   "00:00:00:01.000",
				SceneTime:  core.QualifiedFrameTime{Frame: 1, Rate: core.FrameRate30},
				Values:     []float64{0.5, 0.25},
				CapturedAt: at,
			},
			{
				Timecode:  "00:00:00:02.000",
				SceneTime: core.QualifiedFrameTime{Frame: 2, Rate: core.FrameRate30},
				Values:    []float64{0.75, 0},
			},
		},
		ExportedAt: at.Add(time.Minute),
	}
}

func TestFramePoint(t *testing.T) {
	rec := testRecording()

	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(FramePoint(rec, 0), time.Second), "\n")
	assert.True(t, strings.HasPrefix(line, "face_frame,subject=iPhone "), line)
	assert.Contains(t, line, "JawOpen=0.5")
	assert.Contains(t, line, "Property_1=0.25")
	assert.Contains(t, line, "frame=1i")
	assert.Contains(t, line, `timecode="00:00:00:01.000"`)
	assert.True(t, strings.HasSuffix(line, " 1700000000"), line)

	// no capture time falls back to the export time
	line = strings.TrimSuffix(influxdb2_write.PointToLineProtocol(FramePoint(rec, 1), time.Second), "\n")
	assert.True(t, strings.HasSuffix(line, " 1700000060"), line)
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.ErrorIs(t, m.WritePoint(FramePoint(testRecording(), 0)), ErrNotConnected)
}

func TestUnreachableServer_WritesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "facecsv", Bucket: "face-capture",
	}, zerolog.Nop(), backup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	assert.Equal(t, "influx", storage.NameOf(m))

	require.NoError(t, m.StoreRecording(testRecording()))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "JawOpen=0.75")
}
