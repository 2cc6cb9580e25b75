package execution

import (
	"github.com/nerrad567/gray-logic-shades/internal/automation"
)

// Unit names. Every firing submits all three, in this order.
const (
	UnitClose     = "close_shades"
	UnitOpen      = "open_shades"
	UnitSetLevels = "set_shade_levels"
)

// Units returns the unit names in submission order.
func Units() []string {
	return []string{UnitClose, UnitOpen, UnitSetLevels}
}

// Level is a set-value target.
type Level struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
}

// Plan is an automation's devices partitioned by the command they need.
type Plan struct {
	// Close holds CLOSED and ON devices.
	Close []string `json:"close"`

	// Open holds OPEN and OFF devices.
	Open []string `json:"open"`

	// Levels holds AT_VALUE devices with their percentages.
	Levels []Level `json:"levels"`

	// Skipped holds devices whose state maps to no command: an unknown
	// kind, or AT_VALUE without a value.
	Skipped []string `json:"skipped,omitempty"`
}

// Partition splits an automation's devices into the three command groups,
// keeping automation order within each group.
//
// Example:
//
//	CLOSED → Close, ON → Close, OPEN → Open, OFF → Open, AT_VALUE(40) → Levels
func Partition(a automation.Automation) Plan {
	var p Plan
	for _, d := range a.Devices {
		switch d.State.Kind {
		case automation.StateClosed, automation.StateOn:
			p.Close = append(p.Close, d.Device.Name)
		case automation.StateOpen, automation.StateOff:
			p.Open = append(p.Open, d.Device.Name)
		case automation.StateAtValue:
			if v, ok := d.State.Level(); ok {
				p.Levels = append(p.Levels, Level{Name: d.Device.Name, Percent: v})
				continue
			}
			p.Skipped = append(p.Skipped, d.Device.Name)
		default:
			p.Skipped = append(p.Skipped, d.Device.Name)
		}
	}
	return p
}

// Size is the number of devices across the three command groups.
func (p Plan) Size() int {
	return len(p.Close) + len(p.Open) + len(p.Levels)
}
