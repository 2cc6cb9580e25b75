// Package automation resolves declared automations into concrete device
// targets.
//
// An automation names a set of devices, the state each should reach, and
// a schedule. Devices are chosen either by an explicit device_list, where
// each entry may carry its own percentage, or by location tags, where every
// matching device gets the automation's uniform setting.
//
//	reg, automations, err := automation.Load("automations.yaml", logger)
//
// # Settings
//
// The optional setting is a string/integer union:
//
//   - a state name ("open", "closed", "on", "off") applies that state
//   - an integer applies AT_VALUE with that percentage
//   - when absent, every device_list entry must carry its own value
//
// A uniform setting always overrides per-device values.
//
// # Key Types
//
//   - DeviceState: target kind plus a percentage for AT_VALUE
//   - DeviceWithState: one registered device and its target
//   - Automation: name, ordered targets and schedule
//   - Resolver: binds a manifest to a device registry
package automation
