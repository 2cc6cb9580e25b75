package device

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-shades/internal/manifest"
)

// Type is the closed set of device kinds the worker can drive.
type Type string

// Device types.
const (
	// TypeShade is a motorised blind, shade or curtain.
	TypeShade Type = "SHADE"

	// TypeSwitch is a binary on/off actuator.
	TypeSwitch Type = "SWITCH"
)

// AllTypes returns every known device type.
func AllTypes() []Type {
	return []Type{TypeShade, TypeSwitch}
}

// ParseType decodes a device type name case-insensitively.
// Unknown names fail with manifest.ErrUnknownDeviceType.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(s))) {
	case TypeShade:
		return TypeShade, nil
	case TypeSwitch:
		return TypeSwitch, nil
	}
	names := make([]string, 0, len(AllTypes()))
	for _, t := range AllTypes() {
		names = append(names, string(t))
	}
	return "", manifest.Errorf(manifest.KindUnknownDeviceType, "type %q (want one of %s)", s, strings.Join(names, ", "))
}

// String implements fmt.Stringer.
func (t Type) String() string {
	return string(t)
}

// Device is a controllable actuator declared in the manifest.
// Devices are immutable once loaded; the registry hands out copies.
type Device struct {
	Name string   `json:"name"`
	Type Type     `json:"type"`
	Tags []string `json:"location_tags"`
}

// HasAnyTag reports whether the device carries at least one of tags.
// Tags compare by exact string equality. An empty list on either side
// never matches.
func (d Device) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range d.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a copy that shares no memory with d.
func (d Device) Clone() Device {
	c := d
	if d.Tags != nil {
		c.Tags = make([]string, len(d.Tags))
		copy(c.Tags, d.Tags)
	}
	return c
}

// String implements fmt.Stringer.
func (d Device) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, d.Type)
}
