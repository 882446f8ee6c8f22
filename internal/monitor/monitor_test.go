package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/internal/recorder"
	"github.com/OCAP2/facecsv/pkg/core"
)

type fixedStatus recorder.Status

func (f fixedStatus) Status() recorder.Status { return recorder.Status(f) }

func TestSnapshot(t *testing.T) {
	reg := livelink.NewRegistry()
	reg.PushFrame("iPhone", core.FrameData{})
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.FixedZone("x", 3600))

	s := NewService(Dependencies{
		Recorder: fixedStatus{
			Subject:   "iPhone",
			Recording: true,
			Rows:      12,
			Stats:     recorder.Stats{Appended: 11},
		},
		Client:     reg,
		Reconnects: func() int { return 2 },
		Now:        func() time.Time { return now },
	})

	snap := s.Snapshot()
	assert.Equal(t, now.UTC(), snap.Time)
	assert.Equal(t, "iPhone", snap.Subject)
	assert.True(t, snap.Recording)
	assert.Equal(t, 12, snap.Rows)
	assert.Equal(t, int64(11), snap.Stats.Appended)
	assert.Equal(t, []string{"iPhone"}, snap.Subjects)
	assert.Equal(t, 2, snap.RelayReconnects)
}

func TestWriteStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), StatusFileName)
	s := NewService(Dependencies{Recorder: fixedStatus{Subject: "a"}, StatusPath: path})

	require.NoError(t, s.WriteStatus())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "a", snap.Subject)
	assert.Equal(t, []string{}, snap.Subjects)
}

func TestWriteStatus_BadPath(t *testing.T) {
	s := NewService(Dependencies{
		Recorder:   fixedStatus{},
		StatusPath: filepath.Join(t.TempDir(), "missing", StatusFileName),
	})
	assert.Error(t, s.WriteStatus())
}

func TestStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), StatusFileName)
	s := NewService(Dependencies{
		Recorder:   fixedStatus{Subject: "x"},
		StatusPath: path,
		Interval:   5 * time.Millisecond,
	})

	s.Start()
	s.Start()
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}
