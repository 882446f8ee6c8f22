// Package csvfile writes recorder rows to disk.
//
// Rows are already comma-joined; the file is the rows joined with "\n" and no
// trailing newline. Values are numeric and timecodes contain no commas, so no
// quoting is applied.
package csvfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extension is the suffix every output filename carries.
const Extension = ".csv"

// EnsureExtension appends ".csv" to name when missing.
func EnsureExtension(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// Content joins rows into the exact file body.
func Content(rows []string) string {
	return strings.Join(rows, "\n")
}

// Write creates path's directory tree if needed and writes rows to path,
// overwriting any existing file.
func Write(path string, rows []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(Content(rows)), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
