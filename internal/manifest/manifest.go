package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// KindMalformed marks a manifest that is not valid YAML or does not fit the
// schema's shape.
const KindMalformed Kind = "malformed"

// ErrMalformed matches KindMalformed errors.
var ErrMalformed = &ConfigError{Kind: KindMalformed}

// File is the decoded automation manifest.
//
// A nil collection means the key was absent (or null); an empty, non-nil
// collection means the key was present with no entries. yaml.v3 always
// allocates a slice for a sequence node, which is what makes the distinction
// observable.
type File struct {
	Devices     []Device     `yaml:"devices"`
	Automations []Automation `yaml:"automations"`
}

// Device is one entry of the devices collection.
type Device struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	LocationTags []string `yaml:"location_tags"`
}

// Automation is one entry of the automations collection, before resolution.
type Automation struct {
	Name     string    `yaml:"name"`
	Setting  *Setting  `yaml:"setting"`
	Devices  *Selector `yaml:"devices"`
	Schedule *Schedule `yaml:"schedule"`
}

// Selector picks the devices an automation drives. Exactly one of the two
// fields must be present.
type Selector struct {
	DeviceList []DeviceRef `yaml:"device_list"`
	Tags       []string    `yaml:"tags"`
}

// DeviceRef names a device and optionally its own target value.
type DeviceRef struct {
	Name  string `yaml:"name"`
	Value *int   `yaml:"value"`
}

// Schedule is the raw schedule block. Sunset and Sunrise are non-nil
// whenever their key is present, even with an empty or null value.
type Schedule struct {
	Cron    string     `yaml:"cron"`
	Sunset  *SunOffset `yaml:"sunset"`
	Sunrise *SunOffset `yaml:"sunrise"`
}

// UnmarshalYAML decodes the block and records sunset/sunrise by key
// presence, so a bare "sunset:" means the event itself.
func (s *Schedule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return Errorf(KindMalformed, "line %d: schedule must be a mapping", node.Line)
	}

	type plain Schedule
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case "sunset":
			if raw.Sunset == nil {
				raw.Sunset = &SunOffset{}
			}
		case "sunrise":
			if raw.Sunrise == nil {
				raw.Sunrise = &SunOffset{}
			}
		}
	}
	*s = Schedule(raw)
	return nil
}

// SunOffset is the raw hours/minutes offset from a solar event.
type SunOffset struct {
	Hours   int `yaml:"hours"`
	Minutes int `yaml:"minutes"`
}

// SettingKind tells which variant of a Setting is populated.
type SettingKind int

// Setting variants.
const (
	SettingName SettingKind = iota + 1
	SettingValue
)

// Setting is the uniform target of an automation: either a state name
// ("closed", "on", ...) or an integer percentage.
type Setting struct {
	Kind  SettingKind
	Name  string
	Value int
}

// NameSetting returns a state-name setting.
func NameSetting(name string) *Setting {
	return &Setting{Kind: SettingName, Name: name}
}

// ValueSetting returns an integer setting.
func ValueSetting(v int) *Setting {
	return &Setting{Kind: SettingValue, Value: v}
}

// UnmarshalYAML decodes the string/integer union. Any other YAML type,
// including floats and booleans, is rejected.
func (s *Setting) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return Errorf(KindInvalidSettingType, "line %d: setting must be a string or an integer", node.Line)
	}

	switch node.ShortTag() {
	case "!!str":
		*s = Setting{Kind: SettingName, Name: node.Value}
	case "!!int":
		var v int
		if err := node.Decode(&v); err != nil {
			return Errorf(KindInvalidSettingType, "line %d: %v", node.Line, err)
		}
		*s = Setting{Kind: SettingValue, Value: v}
	default:
		return Errorf(KindInvalidSettingType, "line %d: setting %q is %s, want a string or an integer",
			node.Line, node.Value, node.ShortTag())
	}
	return nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return File{}, cfgErr
		}
		return File{}, &ConfigError{Kind: KindMalformed, Detail: err.Error()}
	}
	return f, nil
}

// Load reads and decodes the manifest at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from process configuration
	if err != nil {
		return File{}, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data)
}
