// Package util cleans up string arguments passed in from the host.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingArg is returned when a required argument was not supplied.
var ErrMissingArg = errors.New("missing argument")

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg unwraps one host string argument.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// CleanArgs applies CleanArg to every element, returning a new slice.
func CleanArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = CleanArg(a)
	}
	return out
}

// ArgAt returns the cleaned argument at index i.
func ArgAt(args []string, i int) (string, error) {
	if i < 0 || i >= len(args) {
		return "", fmt.Errorf("%w: index %d", ErrMissingArg, i)
	}
	return CleanArg(args[i]), nil
}

// OptionalArg returns the cleaned argument at index i, or "" when absent.
func OptionalArg(args []string, i int) string {
	v, err := ArgAt(args, i)
	if err != nil {
		return ""
	}
	return v
}
