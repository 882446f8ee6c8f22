package recorder

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OCAP2/facecsv/internal/livelink"
	"github.com/OCAP2/facecsv/internal/timecode"
	"github.com/OCAP2/facecsv/pkg/core"
)

// Header column labels. The second column holds the property count in data rows.
const (
	ColumnTimecode      = "Timecode"
	ColumnNumProperties = "NumProperties"
)

// valuePrecision is the fixed number of decimals for every property value.
const valuePrecision = 10

// tick is the per-tick callback registered while recording.
func (r *Recorder) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording {
		return
	}
	r.stats.Ticks++

	if !r.headerWritten {
		if err := r.initializeHeaderLocked(); err != nil {
			r.logger.Error("Failed to initialize header, stopping", "subject", r.subject, "error", err)
			r.stopLocked()
			return
		}
	}

	r.captureFrameLocked()
}

// initializeHeaderLocked derives the column names from one evaluated sample
// and replaces the buffer with the header row.
func (r *Recorder) initializeHeaderLocked() error {
	if r.subject == "" {
		return ErrNoSubject
	}
	if r.client == nil {
		return ErrNoClient
	}
	if !livelink.HasSubject(r.client, r.subject) {
		return fmt.Errorf("%w: %s", livelink.ErrSubjectNotFound, r.subject)
	}

	sample, err := r.client.Evaluate(r.subject)
	if err != nil {
		return fmt.Errorf("failed to evaluate frame for header: %w", err)
	}

	var names []string
	switch {
	case sample.Static != nil:
		names = slices.Clone(sample.Static.PropertyNames)
	case sample.Frame != nil:
		r.logger.Warn("Could not get property names, using indices", "subject", r.subject)
		names = fallbackNames(len(sample.Frame.Values))
	default:
		return fmt.Errorf("failed to evaluate frame for header: %w", livelink.ErrNoFrame)
	}
	if names == nil {
		names = []string{}
	}

	r.columnNames = names
	r.rows = []string{HeaderRow(names)}
	r.headerWritten = true

	r.logger.Info("Header initialized", "subject", r.subject, "properties", len(names))
	return nil
}

// captureFrameLocked samples one frame and appends it unless its values
// repeat the previous accepted sample.
func (r *Recorder) captureFrameLocked() {
	if r.client == nil {
		r.skipLocked(ErrNoClient)
		return
	}

	sample, err := r.client.Evaluate(r.subject)
	if err != nil {
		r.skipLocked(err)
		return
	}
	if sample.Frame == nil {
		r.skipLocked(livelink.ErrNoFrame)
		return
	}

	values := sample.Frame.Values
	if r.hasLast && slices.Equal(values, r.lastValues) {
		r.stats.Duplicates++
		r.metrics.duplicate()
		return
	}

	tc := timecode.FormatFrameTime(sample.Frame.SceneTime)
	r.rows = append(r.rows, FormatRow(tc, values))
	r.lastValues = slices.Clone(values)
	r.hasLast = true
	r.frames = append(r.frames, core.FrameRecord{
		Timecode:   tc,
		SceneTime:  sample.Frame.SceneTime,
		Values:     slices.Clone(values),
		CapturedAt: r.now(),
	})
	r.stats.Appended++
	r.metrics.appended()
}

func (r *Recorder) skipLocked(err error) {
	r.stats.Skipped++
	r.metrics.skipped()
	r.logger.Debug("Skipped frame", "subject", r.subject, "error", err)
}

// HeaderRow builds "Timecode,NumProperties,<name>...".
func HeaderRow(names []string) string {
	cols := make([]string, 0, len(names)+2)
	cols = append(cols, ColumnTimecode, ColumnNumProperties)
	cols = append(cols, names...)
	return strings.Join(cols, ",")
}

// FormatRow builds "<timecode>,<count>,<value>..." with fixed-precision values.
func FormatRow(tc string, values []float64) string {
	cols := make([]string, 0, len(values)+2)
	cols = append(cols, tc, strconv.Itoa(len(values)))
	for _, v := range values {
		cols = append(cols, FormatValue(v))
	}
	return strings.Join(cols, ",")
}

// FormatValue renders v with ten decimal places.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', valuePrecision, 64)
}

func fallbackNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Property_%d", i)
	}
	return names
}
