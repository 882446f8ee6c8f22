// internal/storage/storage.go
package storage

import "github.com/OCAP2/facecsv/pkg/core"

// Backend is the interface all archive implementations must satisfy.
// Archives receive a recording after its CSV file has been written.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StoreRecording persists an exported recording.
	StoreRecording(rec *core.Recording) error
}

// Named is an optional interface for backends that report a display name in logs.
type Named interface {
	Name() string
}

// NameOf returns the backend's name, or its type for unnamed backends.
func NameOf(b Backend) string {
	if n, ok := b.(Named); ok {
		return n.Name()
	}
	return "backend"
}
