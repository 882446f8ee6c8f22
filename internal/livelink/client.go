// Package livelink defines the upstream facial-capture source the recorder
// polls, and an in-memory registry implementation fed by a relay.
package livelink

import (
	"errors"

	"github.com/OCAP2/facecsv/pkg/core"
)

var (
	// ErrSubjectNotFound is returned when the subject is not currently known.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrNoFrame is returned when a known subject has not produced a frame yet.
	ErrNoFrame = errors.New("no frame available")
)

// Client is the upstream data source.
type Client interface {
	// ListSubjects returns the names of all currently known subjects.
	ListSubjects() []string

	// Evaluate returns the latest sample for subject.
	Evaluate(subject string) (core.FrameSample, error)
}

// HasSubject reports whether subject is among c's known subjects.
func HasSubject(c Client, subject string) bool {
	if c == nil || subject == "" {
		return false
	}
	for _, s := range c.ListSubjects() {
		if s == subject {
			return true
		}
	}
	return false
}
