// pkg/core/frame.go
package core

import "time"

// FrameRate is a rational frame rate, e.g. 30000/1001 for 29.97 fps.
type FrameRate struct {
	Numerator   int32
	Denominator int32
}

// Common frame rates
var (
	FrameRate24 = FrameRate{Numerator: 24, Denominator: 1}
	FrameRate30 = FrameRate{Numerator: 30, Denominator: 1}
	FrameRate60 = FrameRate{Numerator: 60, Denominator: 1}
)

// AsDecimal returns the rate in frames per second. A zero denominator yields 0.
func (r FrameRate) AsDecimal() float64 {
	if r.Denominator == 0 {
		return 0
	}
	return float64(r.Numerator) / float64(r.Denominator)
}

// QualifiedFrameTime is an absolute frame number plus a sub-frame fraction,
// qualified by the rate it was sampled at.
type QualifiedFrameTime struct {
	Frame    int64
	SubFrame float64 // fraction of one frame, [0, 1)
	Rate     FrameRate
}

// Timecode is a non-drop SMPTE timecode.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

// StaticData is the per-subject metadata that does not change frame to frame.
type StaticData struct {
	PropertyNames []string
}

// FrameData is one evaluated frame of a subject.
type FrameData struct {
	SceneTime QualifiedFrameTime
	Values    []float64
}

// FrameSample is the result of evaluating a subject on the upstream client.
// Static is nil when the subject exposes no property metadata.
type FrameSample struct {
	Subject string
	Static  *StaticData
	Frame   *FrameData
}

// FrameRecord is one accepted row of a recording in structured form.
type FrameRecord struct {
	Timecode   string
	SceneTime  QualifiedFrameTime
	Values     []float64
	CapturedAt time.Time
}
