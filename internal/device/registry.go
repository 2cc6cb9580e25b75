package device

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

// Logger defines the logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the read-only catalogue of declared devices, keyed by name.
//
// It is built once at startup and never mutated afterwards, so all methods
// are safe for concurrent use without locking. Every method returns copies.
type Registry struct {
	devices map[string]Device
	order   []string
}

// Load builds a registry from the devices collection of a manifest.
//
// Parameters:
//   - file: Decoded manifest; only the devices collection is read
//
// Returns:
//   - *Registry: Registry holding every declared device
//   - error: a *manifest.ConfigError of kind MissingDevices, MissingName,
//     UnknownDeviceType or DuplicateDevice
//
// Example:
//
//	file, _ := manifest.Load("automations.yaml")
//	reg, err := device.Load(file)
func Load(file manifest.File) (*Registry, error) {
	return LoadWithLogger(file, noopLogger{})
}

// LoadWithLogger is Load with a logger for the load summary.
func LoadWithLogger(file manifest.File, logger Logger) (*Registry, error) {
	if file.Devices == nil {
		return nil, manifest.Errorf(manifest.KindMissingDevices, "manifest has no devices collection")
	}
	if logger == nil {
		logger = noopLogger{}
	}

	devices := make([]Device, 0, len(file.Devices))
	for i, raw := range file.Devices {
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			return nil, manifest.Errorf(manifest.KindMissingName, "devices[%d] has no name", i)
		}

		typ, err := ParseType(raw.Type)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}

		devices = append(devices, Device{
			Name: name,
			Type: typ,
			Tags: append([]string{}, raw.LocationTags...),
		})
	}

	reg, err := NewRegistry(devices...)
	if err != nil {
		return nil, err
	}

	logger.Info("device registry loaded", "count", reg.Len())
	return reg, nil
}

// NewRegistry builds a registry from already typed devices.
// Duplicate names fail with manifest.ErrDuplicateDevice.
func NewRegistry(devices ...Device) (*Registry, error) {
	r := &Registry{
		devices: make(map[string]Device, len(devices)),
		order:   make([]string, 0, len(devices)),
	}
	for _, d := range devices {
		if _, exists := r.devices[d.Name]; exists {
			return nil, manifest.Errorf(manifest.KindDuplicateDevice, "device %q declared more than once", d.Name)
		}
		r.devices[d.Name] = d.Clone()
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

// Get returns the device registered under name.
func (r *Registry) Get(name string) (Device, bool) {
	d, ok := r.devices[name]
	if !ok {
		return Device{}, false
	}
	return d.Clone(), true
}

// MustGet is Get returning ErrDeviceNotFound for an unknown name.
func (r *Registry) MustGet(name string) (Device, error) {
	d, ok := r.Get(name)
	if !ok {
		return Device{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
	}
	return d, nil
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	return len(r.order)
}

// List returns every device in declaration order.
func (r *Registry) List() []Device {
	out := make([]Device, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.devices[name].Clone())
	}
	return out
}

// MatchAnyTag returns, in declaration order, every device whose tags
// intersect tags. An empty tags list matches nothing.
func (r *Registry) MatchAnyTag(tags []string) []Device {
	var out []Device
	for _, name := range r.order {
		d := r.devices[name]
		if d.HasAnyTag(tags) {
			out = append(out, d.Clone())
		}
	}
	return out
}
