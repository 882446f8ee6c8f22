package livelink

import (
	"testing"

	"github.com/OCAP2/facecsv/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Client = (*Registry)(nil)

func TestRegistry_EvaluateUnknownSubject(t *testing.T) {
	r := NewRegistry()

	_, err := r.Evaluate("iPhone")
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestRegistry_EvaluateWithoutFrame(t *testing.T) {
	r := NewRegistry()
	r.SetStatic("iPhone", core.StaticData{PropertyNames: []string{"A"}})

	_, err := r.Evaluate("iPhone")
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.Equal(t, []string{"iPhone"}, r.ListSubjects())
}

func TestRegistry_EvaluateReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.SetStatic("iPhone", core.StaticData{PropertyNames: []string{"A", "B"}})
	values := []float64{0.1, 0.2}
	r.PushFrame("iPhone", core.FrameData{Values: values})

	// mutating the pushed slice must not leak into the registry
	values[0] = 9

	sample, err := r.Evaluate("iPhone")
	require.NoError(t, err)
	require.NotNil(t, sample.Static)
	require.NotNil(t, sample.Frame)
	assert.Equal(t, "iPhone", sample.Subject)
	assert.Equal(t, []string{"A", "B"}, sample.Static.PropertyNames)
	assert.Equal(t, []float64{0.1, 0.2}, sample.Frame.Values)

	sample.Frame.Values[1] = 7
	again, err := r.Evaluate("iPhone")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, again.Frame.Values)
}

func TestRegistry_EvaluateWithoutStatic(t *testing.T) {
	r := NewRegistry()
	r.PushFrame("iPhone", core.FrameData{Values: []float64{1}})

	sample, err := r.Evaluate("iPhone")
	require.NoError(t, err)
	assert.Nil(t, sample.Static)
}

func TestRegistry_RemoveAndReset(t *testing.T) {
	r := NewRegistry()
	r.PushFrame("b", core.FrameData{})
	r.PushFrame("a", core.FrameData{})
	assert.Equal(t, []string{"a", "b"}, r.ListSubjects())

	r.Remove("a")
	assert.Equal(t, []string{"b"}, r.ListSubjects())

	_, ok := r.LastUpdate("b")
	assert.True(t, ok)

	r.Reset()
	assert.Empty(t, r.ListSubjects())
	_, ok = r.LastUpdate("b")
	assert.False(t, ok)
}

func TestHasSubject(t *testing.T) {
	r := NewRegistry()
	r.PushFrame("iPhone", core.FrameData{})

	assert.True(t, HasSubject(r, "iPhone"))
	assert.False(t, HasSubject(r, "Android"))
	assert.False(t, HasSubject(r, ""))
	assert.False(t, HasSubject(nil, "iPhone"))
}
