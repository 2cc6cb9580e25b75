package automation

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-shades/internal/device"
	"github.com/nerrad567/gray-logic-shades/internal/manifest"
	"github.com/nerrad567/gray-logic-shades/internal/schedule"
)

// Logger defines the logging interface used by the resolver.
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

// Resolver turns the automations collection of a manifest into Automations
// bound to a device registry.
type Resolver struct {
	registry *device.Registry
	logger   Logger
}

// NewResolver creates a resolver over reg.
func NewResolver(reg *device.Registry) *Resolver {
	return &Resolver{registry: reg, logger: noopLogger{}}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// Resolve resolves every automation in file against reg.
// See Resolver.Resolve.
func Resolve(file manifest.File, reg *device.Registry) ([]Automation, error) {
	return NewResolver(reg).Resolve(file)
}

// Resolve resolves every automation in declaration order.
//
// Resolution is all or nothing: the first malformed automation fails the
// whole call with a *manifest.ConfigError and no automations are returned.
// The same file and registry always produce the same result.
func (r *Resolver) Resolve(file manifest.File) ([]Automation, error) {
	if file.Automations == nil {
		return nil, manifest.Errorf(manifest.KindMissingAutomations, "manifest has no automations collection")
	}

	out := make([]Automation, 0, len(file.Automations))
	seen := make(map[string]struct{}, len(file.Automations))

	for i, raw := range file.Automations {
		a, err := r.resolveOne(raw)
		if err != nil {
			if raw.Name == "" {
				return nil, fmt.Errorf("automations[%d]: %w", i, err)
			}
			return nil, fmt.Errorf("automation %q: %w", raw.Name, err)
		}

		if _, dup := seen[a.Name]; dup {
			return nil, manifest.Errorf(manifest.KindDuplicateAutomation, "automation %q declared more than once", a.Name)
		}
		seen[a.Name] = struct{}{}

		r.logger.Debug("automation resolved",
			"automation", a.Name,
			"devices", len(a.Devices),
			"schedule", a.Schedule.String(),
		)
		out = append(out, a)
	}

	r.logger.Info("automations resolved", "count", len(out))
	return out, nil
}

func (r *Resolver) resolveOne(raw manifest.Automation) (Automation, error) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return Automation{}, manifest.Errorf(manifest.KindMissingName, "automation has no name")
	}

	uniform, err := resolveSetting(raw.Setting)
	if err != nil {
		return Automation{}, err
	}

	devices, err := r.resolveDevices(raw.Devices, uniform)
	if err != nil {
		return Automation{}, err
	}

	sched, err := schedule.Resolve(raw.Schedule)
	if err != nil {
		return Automation{}, err
	}

	return Automation{Name: name, Devices: devices, Schedule: sched}, nil
}

// resolveSetting returns the uniform state, or nil when the automation has
// no setting and each device must carry its own value.
func resolveSetting(s *manifest.Setting) (*DeviceState, error) {
	if s == nil {
		return nil, nil
	}

	switch s.Kind {
	case manifest.SettingValue:
		st, err := NewValueState(s.Value)
		if err != nil {
			return nil, err
		}
		return &st, nil

	case manifest.SettingName:
		kind, err := ParseStateKind(s.Name)
		if err != nil {
			return nil, err
		}
		if kind == StateAtValue {
			return nil, manifest.Errorf(manifest.KindInvalidValue, "setting %q needs an integer percentage instead", s.Name)
		}
		st, err := NewState(kind)
		if err != nil {
			return nil, err
		}
		return &st, nil
	}

	return nil, manifest.Errorf(manifest.KindInvalidSettingType, "setting has no variant")
}

func (r *Resolver) resolveDevices(sel *manifest.Selector, uniform *DeviceState) ([]DeviceWithState, error) {
	if sel == nil || (sel.DeviceList == nil && sel.Tags == nil) {
		return nil, manifest.Errorf(manifest.KindUnknownDeviceSelector, "devices must have device_list or tags")
	}
	if sel.DeviceList != nil && sel.Tags != nil {
		return nil, manifest.Errorf(manifest.KindAmbiguousDeviceSelector, "devices has both device_list and tags")
	}

	if sel.DeviceList != nil {
		return r.resolveDeviceList(sel.DeviceList, uniform)
	}
	return r.resolveTags(sel.Tags, uniform)
}

// resolveDeviceList keeps list order. A uniform setting overrides any
// per-device value.
func (r *Resolver) resolveDeviceList(refs []manifest.DeviceRef, uniform *DeviceState) ([]DeviceWithState, error) {
	out := make([]DeviceWithState, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		d, ok := r.registry.Get(name)
		if !ok {
			return nil, manifest.Errorf(manifest.KindUnknownDevice, "device %q is not declared", ref.Name)
		}

		var state DeviceState
		switch {
		case uniform != nil:
			state = uniform.clone()
		case ref.Value == nil:
			return nil, manifest.Errorf(manifest.KindMissingDeviceValue, "device %q needs a value when the automation has no setting", name)
		default:
			st, err := NewValueState(*ref.Value)
			if err != nil {
				return nil, fmt.Errorf("device %q: %w", name, err)
			}
			state = st
		}

		out = append(out, DeviceWithState{Device: d, State: state})
	}
	return out, nil
}

// resolveTags selects every registered device sharing a tag, in registry
// declaration order.
func (r *Resolver) resolveTags(tags []string, uniform *DeviceState) ([]DeviceWithState, error) {
	if uniform == nil {
		return nil, manifest.Errorf(manifest.KindMissingUniformState, "tag selection %v needs a setting", tags)
	}

	matched := r.registry.MatchAnyTag(tags)
	out := make([]DeviceWithState, 0, len(matched))
	for _, d := range matched {
		out = append(out, DeviceWithState{Device: d, State: uniform.clone()})
	}
	return out, nil
}

// Load reads the manifest at path, builds its device registry and resolves
// its automations.
func Load(path string, logger Logger) (*device.Registry, []Automation, error) {
	if logger == nil {
		logger = noopLogger{}
	}

	file, err := manifest.Load(path)
	if err != nil {
		return nil, nil, err
	}

	reg, err := device.LoadWithLogger(file, logger)
	if err != nil {
		return nil, nil, err
	}

	r := NewResolver(reg)
	r.SetLogger(logger)
	automations, err := r.Resolve(file)
	if err != nil {
		return nil, nil, err
	}
	return reg, automations, nil
}
