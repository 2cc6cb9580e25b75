// Package execution fires automations against the device bridge.
//
// A firing partitions the automation's devices into three groups and runs
// each as its own workflow unit:
//
//	close_shades      CLOSED, ON   → bridge lower
//	open_shades       OPEN, OFF    → bridge raise
//	set_shade_levels  AT_VALUE(n)  → bridge set_value n
//
// All three units are always submitted; an empty group completes without
// touching the bridge. Each unit acquires its own bridge connection,
// enumerates the device domain, skips (and logs) names the bridge does not
// report, and issues its commands concurrently. One unit failing or timing
// out never affects the other two.
//
// Usage:
//
//	orch := execution.NewOrchestrator(engine, execution.NewActivities(b, "cover", log, m), opts)
//	report := orch.Fire(ctx, automation)
//	if !report.OK() {
//	    // inspect report.Units
//	}
package execution
