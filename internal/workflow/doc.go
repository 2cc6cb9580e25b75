// Package workflow runs the units of a firing and schedules firings.
//
// The Engine executes each submitted Unit in its own goroutine with:
//   - A timeout covering every attempt and backoff
//   - A retry policy with exponential backoff
//   - Panic recovery, reported as a failed unit
//
// Units are independent: one failing or timing out never affects another.
//
// The Scheduler fires named jobs on cron.Schedule triggers and is built on
// github.com/robfig/cron/v3.
//
// Usage:
//
//	engine := workflow.NewEngine(workflow.Options{TaskQueue: "shade-controls"})
//	h := engine.Submit(ctx, workflow.Unit{Name: "close_shades", Run: closeShades})
//	outcome := h.Wait(ctx)
package workflow
