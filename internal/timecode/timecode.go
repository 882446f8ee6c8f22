// Package timecode converts qualified frame times into the fixed-width
// "HH:MM:SS:FF.mmm" strings written to the first CSV column.
//
// The sub-frame is a fraction of one frame. The millisecond field is the time
// elapsed inside the frame: round(subFrame * 1000 / fps). At 30 fps a
// half-frame sub-frame of 0.5 is 16.67ms and prints as ".017".
package timecode

import (
	"fmt"
	"math"

	"github.com/OCAP2/facecsv/pkg/core"
)

// FromFrameTime converts an absolute frame number into non-drop timecode.
// Frames per second is the rate rounded up, so 29.97 counts 30 frames.
// Hours wrap at 24 like a wall clock.
func FromFrameTime(t core.QualifiedFrameTime) core.Timecode {
	fps := int64(math.Ceil(t.Rate.AsDecimal()))
	if fps <= 0 || t.Frame < 0 {
		return core.Timecode{}
	}

	frames := t.Frame % fps
	totalSeconds := t.Frame / fps

	return core.Timecode{
		Hours:   int((totalSeconds / 3600) % 24),
		Minutes: int((totalSeconds / 60) % 60),
		Seconds: int(totalSeconds % 60),
		Frames:  int(frames),
	}
}

// Millis returns the millisecond offset of subFrame inside one frame at rate.
// A non-positive rate treats the sub-frame as a fraction of a second.
func Millis(subFrame float64, rate core.FrameRate) int {
	factor := rate.AsDecimal()
	if factor <= 0 {
		factor = 1
	}
	ms := int(math.Round(subFrame * 1000 / factor))
	if ms < 0 {
		return 0
	}
	if ms > 999 {
		return 999
	}
	return ms
}

// Format renders tc and subFrame as HH:MM:SS:FF.mmm.
func Format(tc core.Timecode, subFrame float64, rate core.FrameRate) string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d.%03d",
		tc.Hours, tc.Minutes, tc.Seconds, tc.Frames, Millis(subFrame, rate))
}

// FormatFrameTime is Format(FromFrameTime(t), t.SubFrame, t.Rate).
func FormatFrameTime(t core.QualifiedFrameTime) string {
	return Format(FromFrameTime(t), t.SubFrame, t.Rate)
}
