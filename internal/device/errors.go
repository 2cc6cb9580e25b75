package device

import "errors"

// Domain errors for the device package.
//
// Manifest problems are reported as *manifest.ConfigError; these cover
// lookups against an already loaded registry:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device name is not registered.
	ErrDeviceNotFound = errors.New("device: not found")
)
