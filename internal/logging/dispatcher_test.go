package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("handling event", "command", ":START:", "args", 0)
	dl.Info("registered", "commands", 12)
	dl.Error("event failed", "command", ":EXPORT:", "error", errors.New("disk full"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)

	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "handling event", entries[0]["message"])
	assert.Equal(t, ":START:", entries[0]["command"])
	assert.Equal(t, float64(0), entries[0]["args"])

	assert.Equal(t, "info", entries[1]["level"])
	assert.Equal(t, float64(12), entries[1]["commands"])

	assert.Equal(t, "error", entries[2]["level"])
	assert.Equal(t, "disk full", entries[2]["error"])
}

func TestDispatcherLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	dl.Debug("filtered")
	assert.Empty(t, buf.String())
}

func TestDispatcherLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("odd", "duration", 1500*time.Millisecond, 42, "skipped", "dangling")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "1.5s", entries[0]["duration"])
	assert.NotContains(t, entries[0], "dangling")
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZerolog(&buf, "warn")
	dl := NewDispatcherLogger(zl)

	dl.Info("hidden")
	dl.Error("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
	assert.Equal(t, "dispatcher", entries[0]["component"])
	assert.Contains(t, entries[0], "time")
	assert.Contains(t, entries[0], "utc")
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, zerologLevel("trace"))
	assert.Equal(t, zerolog.DebugLevel, zerologLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, zerologLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, zerologLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, zerologLevel("bogus"))
}
