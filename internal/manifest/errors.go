package manifest

import "fmt"

// Kind classifies a manifest error.
type Kind string

// Manifest error kinds.
const (
	KindMissingDevices          Kind = "missing_devices"
	KindMissingAutomations      Kind = "missing_automations"
	KindMissingName             Kind = "missing_name"
	KindUnknownDeviceType       Kind = "unknown_device_type"
	KindUnknownState            Kind = "unknown_state"
	KindInvalidSettingType      Kind = "invalid_setting_type"
	KindUnknownDevice           Kind = "unknown_device"
	KindUnknownDeviceSelector   Kind = "unknown_device_selector"
	KindAmbiguousDeviceSelector Kind = "ambiguous_device_selector"
	KindMissingUniformState     Kind = "missing_uniform_state"
	KindMissingDeviceValue      Kind = "missing_device_value"
	KindMissingCron             Kind = "missing_cron"
	KindInvalidCron             Kind = "invalid_cron"
	KindInvalidSunOffset        Kind = "invalid_sun_offset"
	KindInvalidValue            Kind = "invalid_value"
	KindDuplicateDevice         Kind = "duplicate_device"
	KindDuplicateAutomation     Kind = "duplicate_automation"
)

// ConfigError reports a malformed automation manifest. Every ConfigError is
// fatal: a manifest either resolves completely or not at all.
//
// Match a specific kind with the sentinels below, or any manifest error with
// ErrConfig:
//
//	if errors.Is(err, manifest.ErrUnknownDevice) {
//	    // an automation named a device that is not declared
//	}
type ConfigError struct {
	Kind   Kind
	Detail string
}

// Error implements error.
func (e *ConfigError) Error() string {
	kind := e.Kind
	if kind == "" {
		kind = "invalid"
	}
	if e.Detail == "" {
		return "manifest: " + string(kind)
	}
	return fmt.Sprintf("manifest: %s: %s", kind, e.Detail)
}

// Is matches another *ConfigError by kind. A target without a kind matches
// every ConfigError.
func (e *ConfigError) Is(target error) bool {
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Errorf builds a ConfigError of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &ConfigError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is.
var (
	ErrConfig = &ConfigError{}

	ErrMissingDevices          = &ConfigError{Kind: KindMissingDevices}
	ErrMissingAutomations      = &ConfigError{Kind: KindMissingAutomations}
	ErrMissingName             = &ConfigError{Kind: KindMissingName}
	ErrUnknownDeviceType       = &ConfigError{Kind: KindUnknownDeviceType}
	ErrUnknownState            = &ConfigError{Kind: KindUnknownState}
	ErrInvalidSettingType      = &ConfigError{Kind: KindInvalidSettingType}
	ErrUnknownDevice           = &ConfigError{Kind: KindUnknownDevice}
	ErrUnknownDeviceSelector   = &ConfigError{Kind: KindUnknownDeviceSelector}
	ErrAmbiguousDeviceSelector = &ConfigError{Kind: KindAmbiguousDeviceSelector}
	ErrMissingUniformState     = &ConfigError{Kind: KindMissingUniformState}
	ErrMissingDeviceValue      = &ConfigError{Kind: KindMissingDeviceValue}
	ErrMissingCron             = &ConfigError{Kind: KindMissingCron}
	ErrInvalidCron             = &ConfigError{Kind: KindInvalidCron}
	ErrInvalidSunOffset        = &ConfigError{Kind: KindInvalidSunOffset}
	ErrInvalidValue            = &ConfigError{Kind: KindInvalidValue}
	ErrDuplicateDevice         = &ConfigError{Kind: KindDuplicateDevice}
	ErrDuplicateAutomation     = &ConfigError{Kind: KindDuplicateAutomation}
)
