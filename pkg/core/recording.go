// pkg/core/recording.go
package core

import "time"

// Recording is an exported capture session handed to archive backends.
type Recording struct {
	Subject     string
	FilePath    string // CSV file the rows were written to
	ColumnNames []string
	Rows        []string // header first, exactly as written to FilePath
	Frames      []FrameRecord
	StartedAt   time.Time
	ExportedAt  time.Time
}

// Duration returns the wall-clock span between the first and last frame.
func (r *Recording) Duration() time.Duration {
	if len(r.Frames) < 2 {
		return 0
	}
	return r.Frames[len(r.Frames)-1].CapturedAt.Sub(r.Frames[0].CapturedAt)
}

// UploadMetadata contains metadata sent alongside an exported CSV upload.
type UploadMetadata struct {
	Subject      string
	FrameCount   int
	Duration     float64 // seconds
	PropertyKeys int
	Tag          string
}
