// Package convert maps core recordings to GORM models and back.
package convert

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/OCAP2/facecsv/internal/model"
	"github.com/OCAP2/facecsv/pkg/core"
)

// toJSON marshals v for a JSON column; nil slices become "[]".
func toJSON[T any](v []T) datatypes.JSON {
	if len(v) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(v)
	return datatypes.JSON(data)
}

// CoreToRecording converts a core.Recording, frames included, to a GORM model.
// The frame rate is taken from the first frame.
func CoreToRecording(r core.Recording) model.Recording {
	rec := model.Recording{
		Subject:         r.Subject,
		FilePath:        r.FilePath,
		ColumnNames:     toJSON(r.ColumnNames),
		FrameCount:      len(r.Frames),
		DurationSeconds: r.Duration().Seconds(),
		StartedAt:       r.StartedAt,
		ExportedAt:      r.ExportedAt,
		Frames:          make([]model.Frame, len(r.Frames)),
	}
	if len(r.Frames) > 0 {
		rec.RateNumerator = r.Frames[0].SceneTime.Rate.Numerator
		rec.RateDenominator = r.Frames[0].SceneTime.Rate.Denominator
	}
	for i, f := range r.Frames {
		rec.Frames[i] = CoreToFrame(i, f)
	}
	return rec
}

// CoreToFrame converts one row; seq is its position within the recording.
func CoreToFrame(seq int, f core.FrameRecord) model.Frame {
	return model.Frame{
		Sequence:    seq,
		Timecode:    f.Timecode,
		FrameNumber: f.SceneTime.Frame,
		SubFrame:    f.SceneTime.SubFrame,
		CapturedAt:  f.CapturedAt,
		Values:      toJSON(f.Values),
	}
}

// RecordingToCore converts a stored recording back. Frames must be preloaded
// in sequence order. Rows and FilePath contents are not reconstructed.
func RecordingToCore(m model.Recording) (core.Recording, error) {
	r := core.Recording{
		Subject:    m.Subject,
		FilePath:   m.FilePath,
		StartedAt:  m.StartedAt,
		ExportedAt: m.ExportedAt,
	}
	if err := json.Unmarshal(m.ColumnNames, &r.ColumnNames); err != nil {
		return core.Recording{}, fmt.Errorf("column names of recording %d: %w", m.ID, err)
	}

	rate := core.FrameRate{Numerator: m.RateNumerator, Denominator: m.RateDenominator}
	r.Frames = make([]core.FrameRecord, len(m.Frames))
	for i, f := range m.Frames {
		var values []float64
		if err := json.Unmarshal(f.Values, &values); err != nil {
			return core.Recording{}, fmt.Errorf("values of frame %d: %w", f.Sequence, err)
		}
		r.Frames[i] = core.FrameRecord{
			Timecode: f.Timecode,
			SceneTime: core.QualifiedFrameTime{
				Frame:    f.FrameNumber,
				SubFrame: f.SubFrame,
				Rate:     rate,
			},
			Values:     values,
			CapturedAt: f.CapturedAt,
		}
	}
	return r, nil
}
