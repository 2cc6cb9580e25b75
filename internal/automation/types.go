package automation

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-shades/internal/device"
	"github.com/nerrad567/gray-logic-shades/internal/manifest"
	"github.com/nerrad567/gray-logic-shades/internal/schedule"
)

// StateKind is the target condition for a device.
type StateKind string

// Target states.
const (
	StateOpen    StateKind = "OPEN"
	StateClosed  StateKind = "CLOSED"
	StateOn      StateKind = "ON"
	StateOff     StateKind = "OFF"
	StateAtValue StateKind = "AT_VALUE"
)

// ParseStateKind decodes a state name case-insensitively.
// Unknown names fail with manifest.ErrUnknownState.
func ParseStateKind(s string) (StateKind, error) {
	switch k := StateKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case StateOpen, StateClosed, StateOn, StateOff, StateAtValue:
		return k, nil
	}
	return "", manifest.Errorf(manifest.KindUnknownState, "state %q", s)
}

const (
	minValue = 0
	maxValue = 100
)

// DeviceState is a target state, with a percentage when the kind is
// StateAtValue. Value is set if and only if Kind is StateAtValue.
type DeviceState struct {
	Kind  StateKind `json:"kind"`
	Value *int      `json:"value,omitempty"`
}

// NewState returns a state without a value. StateAtValue is rejected.
func NewState(kind StateKind) (DeviceState, error) {
	s := DeviceState{Kind: kind}
	if err := s.Validate(); err != nil {
		return DeviceState{}, err
	}
	return s, nil
}

// NewValueState returns a StateAtValue state holding v percent.
func NewValueState(v int) (DeviceState, error) {
	s := DeviceState{Kind: StateAtValue, Value: &v}
	if err := s.Validate(); err != nil {
		return DeviceState{}, err
	}
	return s, nil
}

// Validate checks the kind/value invariant and the value range.
func (s DeviceState) Validate() error {
	switch s.Kind {
	case StateOpen, StateClosed, StateOn, StateOff:
		if s.Value != nil {
			return manifest.Errorf(manifest.KindInvalidValue, "state %s cannot carry a value", s.Kind)
		}
	case StateAtValue:
		if s.Value == nil {
			return manifest.Errorf(manifest.KindInvalidValue, "state %s requires a value", s.Kind)
		}
		if *s.Value < minValue || *s.Value > maxValue {
			return manifest.Errorf(manifest.KindInvalidValue, "value %d outside %d..%d", *s.Value, minValue, maxValue)
		}
	default:
		return manifest.Errorf(manifest.KindUnknownState, "state %q", s.Kind)
	}
	return nil
}

// Level returns the percentage of a StateAtValue state.
func (s DeviceState) Level() (int, bool) {
	if s.Kind != StateAtValue || s.Value == nil {
		return 0, false
	}
	return *s.Value, true
}

// String implements fmt.Stringer.
func (s DeviceState) String() string {
	if v, ok := s.Level(); ok {
		return fmt.Sprintf("%s(%d)", s.Kind, v)
	}
	return string(s.Kind)
}

func (s DeviceState) clone() DeviceState {
	c := DeviceState{Kind: s.Kind}
	if s.Value != nil {
		v := *s.Value
		c.Value = &v
	}
	return c
}

// DeviceWithState pairs a device with the state an automation drives it to.
type DeviceWithState struct {
	Device device.Device `json:"device"`
	State  DeviceState   `json:"state"`
}

// Automation is a resolved rule: a named set of device targets and the
// schedule it fires on. Automations are passed by value and never mutated.
type Automation struct {
	Name     string            `json:"name"`
	Devices  []DeviceWithState `json:"devices"`
	Schedule schedule.Schedule `json:"schedule"`
}

// DeviceNames returns the names of the automation's devices in order.
func (a Automation) DeviceNames() []string {
	out := make([]string, 0, len(a.Devices))
	for _, d := range a.Devices {
		out = append(out, d.Device.Name)
	}
	return out
}
