// Package device provides the Device Registry for the shade worker.
//
// The registry is the catalogue of every actuator declared in the
// automation manifest. It is built once from the manifest's devices
// collection and is read-only afterwards; automations refer to devices by
// name or select them by location tag.
//
// # Loading
//
//	file, err := manifest.Load("automations.yaml")
//	reg, err := device.Load(file)
//
// Device types are a closed set (SHADE, SWITCH) decoded case-insensitively
// through ParseType. Names are unique; a repeated name fails the load.
//
// # Tag selection
//
//	dining := reg.MatchAnyTag([]string{"dining_room"})
//
// A device matches when at least one of its tags equals one of the
// requested tags. Results keep declaration order.
package device
