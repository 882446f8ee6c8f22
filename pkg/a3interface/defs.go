package a3interface

import (
	"github.com/OCAP2/facecsv/internal/dispatcher"
)

// configStruct is the central configuration used by this library
type configStruct struct {
	// rvExtensionVersion is returned when the host first loads the extension
	rvExtensionVersion string

	// extensionName is the name callbacks are sent under
	extensionName string

	// dispatcher handles command routing
	dispatcher *dispatcher.Dispatcher
}

// Init resets the config to its defaults.
func (c *configStruct) Init() {
	c.rvExtensionVersion = "No version set"
	c.extensionName = "facecsv"
	c.dispatcher = nil
}

// SetVersion sets the version string returned by RVExtensionVersion.
func SetVersion(version string) {
	Config.rvExtensionVersion = version
}

// SetExtensionName sets the name used for host callbacks.
func SetExtensionName(name string) {
	Config.extensionName = name
}

// SetDispatcher sets the command dispatcher.
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}
