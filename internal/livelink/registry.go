package livelink

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/OCAP2/facecsv/pkg/core"
)

type subjectState struct {
	static    *core.StaticData
	frame     *core.FrameData
	updatedAt time.Time
}

// Registry caches the latest static and frame data per subject.
// Producers push into it; the recorder reads it through the Client interface.
type Registry struct {
	mu       sync.RWMutex
	subjects map[string]*subjectState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subjects: make(map[string]*subjectState),
	}
}

// Reset drops all subjects.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = make(map[string]*subjectState)
}

// SetStatic registers subject (if new) and replaces its static data.
func (r *Registry) SetStatic(subject string, static core.StaticData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreate(subject)
	s.static = &core.StaticData{PropertyNames: slices.Clone(static.PropertyNames)}
	s.updatedAt = time.Now()
}

// PushFrame registers subject (if new) and replaces its latest frame.
func (r *Registry) PushFrame(subject string, frame core.FrameData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.getOrCreate(subject)
	s.frame = &core.FrameData{
		SceneTime: frame.SceneTime,
		Values:    slices.Clone(frame.Values),
	}
	s.updatedAt = time.Now()
}

// Remove forgets subject.
func (r *Registry) Remove(subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subjects, subject)
}

// LastUpdate returns when subject last received data.
func (r *Registry) LastUpdate(subject string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subjects[subject]
	if !ok {
		return time.Time{}, false
	}
	return s.updatedAt, true
}

// ListSubjects implements Client.
func (r *Registry) ListSubjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.subjects))
	for name := range r.subjects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evaluate implements Client. The returned sample shares no memory with the registry.
func (r *Registry) Evaluate(subject string) (core.FrameSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subjects[subject]
	if !ok {
		return core.FrameSample{}, ErrSubjectNotFound
	}
	if s.frame == nil {
		return core.FrameSample{}, ErrNoFrame
	}

	sample := core.FrameSample{
		Subject: subject,
		Frame: &core.FrameData{
			SceneTime: s.frame.SceneTime,
			Values:    slices.Clone(s.frame.Values),
		},
	}
	if s.static != nil {
		sample.Static = &core.StaticData{PropertyNames: slices.Clone(s.static.PropertyNames)}
	}
	return sample, nil
}

func (r *Registry) getOrCreate(subject string) *subjectState {
	s, ok := r.subjects[subject]
	if !ok {
		s = &subjectState{}
		r.subjects[subject] = s
	}
	return s
}
