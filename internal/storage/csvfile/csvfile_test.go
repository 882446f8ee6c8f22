package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"foo", "foo.csv"},
		{"foo.csv", "foo.csv"},
		{"take.01", "take.01.csv"},
		{"", ".csv"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, EnsureExtension(tt.in))
		})
	}
}

func TestWrite_CreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "take.csv")
	rows := []string{"Timecode,NumProperties,A", "00:00:00:00.000,1,0.5000000000"}

	require.NoError(t, Write(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Timecode,NumProperties,A\n00:00:00:00.000,1,0.5000000000", string(data))
	assert.Equal(t, rows, strings.Split(string(data), "\n"))
}

func TestWrite_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.csv")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer"), 0644))

	require.NoError(t, Write(path, []string{"new"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWrite_DirectoryIsAFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := Write(filepath.Join(blocker, "take.csv"), []string{"row"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}
