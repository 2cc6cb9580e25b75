package execution

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-shades/internal/automation"
	"github.com/nerrad567/gray-logic-shades/internal/workflow"
)

// Engine runs units. *workflow.Engine satisfies it.
type Engine interface {
	Submit(ctx context.Context, u workflow.Unit) *workflow.Handle
}

// Announcer publishes a finished firing.
type Announcer interface {
	Announce(r Report) error
}

// UnitReport is the outcome of one unit of a firing.
type UnitReport struct {
	Unit     string          `json:"unit"`
	Status   workflow.Status `json:"status"`
	Attempts int             `json:"attempts"`
	Duration time.Duration   `json:"duration_ns"`
	Result
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`
}

// OK reports whether the unit completed.
func (u UnitReport) OK() bool {
	return u.Status == workflow.StatusCompleted
}

// Report describes one firing of an automation.
type Report struct {
	FiringID   string        `json:"firing_id"`
	Automation string        `json:"automation"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Units      []UnitReport  `json:"units"`

	// Skipped lists devices that were given no command.
	Skipped []string `json:"skipped,omitempty"`
}

// OK reports whether every unit completed.
func (r Report) OK() bool {
	for _, u := range r.Units {
		if !u.OK() {
			return false
		}
	}
	return true
}

// Unit returns the report for the named unit.
func (r Report) Unit(name string) (UnitReport, bool) {
	for _, u := range r.Units {
		if u.Unit == name {
			return u, true
		}
	}
	return UnitReport{}, false
}

// Options configures an Orchestrator.
type Options struct {
	// UnitTimeout bounds each unit separately. Zero uses the engine default.
	UnitTimeout time.Duration

	// Retry is applied to each unit. Zero uses the engine default.
	Retry workflow.RetryPolicy

	Logger    Logger
	Metrics   Metrics
	Announcer Announcer
}

// Orchestrator fires automations: it partitions the devices, submits the
// three units and collects their outcomes.
//
// Thread Safety: Fire is safe for concurrent use.
type Orchestrator struct {
	engine     Engine
	activities *Activities
	opts       Options
	logger     Logger
	metrics    Metrics
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(engine Engine, activities *Activities, opts Options) *Orchestrator {
	o := &Orchestrator{
		engine:     engine,
		activities: activities,
		opts:       opts,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	if o.logger == nil {
		o.logger = noopLogger{}
	}
	if o.metrics == nil {
		o.metrics = noopMetrics{}
	}
	return o
}

// Fire runs one firing of a and blocks until all three units have
// finished. Units never short-circuit each other; a failure is reported in
// its UnitReport and nowhere else.
func (o *Orchestrator) Fire(ctx context.Context, a automation.Automation) Report {
	report := Report{
		FiringID:   a.Name + "-" + uuid.NewString(),
		Automation: a.Name,
		StartedAt:  time.Now().UTC(),
	}
	o.metrics.FiringStarted(a.Name)

	plan := Partition(a)
	report.Skipped = plan.Skipped
	o.logger.Info("automation firing",
		"automation", a.Name,
		"firing_id", report.FiringID,
		"commands", plan.Size(),
		"close", len(plan.Close),
		"open", len(plan.Open),
		"levels", len(plan.Levels),
	)
	o.logger.Debug("automation devices", "automation", a.Name, "devices", a.DeviceNames())
	if len(plan.Skipped) > 0 {
		o.logger.Warn("devices skipped, state maps to no command",
			"automation", a.Name,
			"firing_id", report.FiringID,
			"devices", plan.Skipped,
		)
	}

	bodies := map[string]func(ctx context.Context) (Result, error){
		UnitClose:     func(ctx context.Context) (Result, error) { return o.activities.CloseShades(ctx, plan.Close) },
		UnitOpen:      func(ctx context.Context) (Result, error) { return o.activities.OpenShades(ctx, plan.Open) },
		UnitSetLevels: func(ctx context.Context) (Result, error) { return o.activities.SetShadeLevels(ctx, plan.Levels) },
	}
	units := Units()

	// Written by attempts that may outlive their unit's timeout.
	results := make([]atomic.Pointer[Result], len(units))
	handles := make([]*workflow.Handle, len(units))
	for i, name := range units {
		run := bodies[name]
		handles[i] = o.engine.Submit(ctx, workflow.Unit{
			Name:    name,
			Timeout: o.opts.UnitTimeout,
			Retry:   o.opts.Retry,
			Run: func(ctx context.Context) error {
				res, err := run(ctx)
				results[i].Store(&res)
				return err
			},
		})
	}

	report.Units = make([]UnitReport, len(handles))
	for i, h := range handles {
		out := h.Wait(ctx)
		ur := UnitReport{
			Unit:     units[i],
			Status:   out.Status,
			Attempts: out.Attempts,
			Duration: out.Duration(),
			Err:      out.Err,
		}
		if res := results[i].Load(); res != nil {
			ur.Result = *res
		}
		if out.Err != nil {
			ur.Error = out.Err.Error()
		}
		report.Units[i] = ur
	}
	report.Duration = time.Since(report.StartedAt)

	o.logReport(report)
	if o.opts.Announcer != nil {
		if err := o.opts.Announcer.Announce(report); err != nil {
			o.logger.Warn("announcing firing", "automation", a.Name, "error", err)
		}
	}
	return report
}

// Job adapts Fire to a scheduler job.
func (o *Orchestrator) Job(a automation.Automation) workflow.Job {
	return func(ctx context.Context) {
		o.Fire(ctx, a)
	}
}

func (o *Orchestrator) logReport(r Report) {
	statuses := make([]any, 0, 2*len(r.Units))
	for _, u := range r.Units {
		statuses = append(statuses, u.Unit, string(u.Status))
	}
	args := append([]any{
		"automation", r.Automation,
		"firing_id", r.FiringID,
		"duration", r.Duration,
	}, statuses...)

	if r.OK() {
		o.logger.Info("automation fired", args...)
		return
	}
	o.logger.Warn("automation fired with failures", args...)
}
