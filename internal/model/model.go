// Package model holds the GORM tables recordings are archived into.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table, in migration order.
var DatabaseModels = []any{
	&ArchiveInfo{},
	&Recording{},
	&Frame{},
}

// ArchiveInfo describes the archive instance. One row is seeded on setup.
type ArchiveInfo struct {
	gorm.Model
	Name          string `json:"name" gorm:"size:127"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*ArchiveInfo) TableName() string {
	return "archive_infos"
}

// Recording is one exported capture session.
type Recording struct {
	gorm.Model
	Subject         string         `json:"subject" gorm:"size:127;index;index:idx_recording_session,priority:1"`
	FilePath        string         `json:"filePath" gorm:"size:1024"`
	ColumnNames     datatypes.JSON `json:"columnNames"`
	FrameCount      int            `json:"frameCount"`
	RateNumerator   int32          `json:"rateNumerator"`
	RateDenominator int32          `json:"rateDenominator"`
	DurationSeconds float64        `json:"durationSeconds"`
	StartedAt       time.Time      `json:"startedAt" gorm:"type:timestamptz;index:idx_recording_session,priority:2"`
	ExportedAt      time.Time      `json:"exportedAt" gorm:"type:timestamptz;index"`
	Frames          []Frame        `json:"frames" gorm:"constraint:OnDelete:CASCADE"`
}

func (*Recording) TableName() string {
	return "recordings"
}

// Frame is one CSV row in structured form. Values follow the recording's
// ColumnNames order.
type Frame struct {
	ID          uint           `json:"id" gorm:"primarykey;autoIncrement"`
	RecordingID uint           `json:"recordingId" gorm:"index:idx_frame_recording_seq,priority:1"`
	Sequence    int            `json:"sequence" gorm:"index:idx_frame_recording_seq,priority:2"`
	Timecode    string         `json:"timecode" gorm:"size:20"`
	FrameNumber int64          `json:"frameNumber"`
	SubFrame    float64        `json:"subFrame"`
	CapturedAt  time.Time      `json:"capturedAt" gorm:"type:timestamptz"`
	Values      datatypes.JSON `json:"values"`
}

func (*Frame) TableName() string {
	return "frames"
}
