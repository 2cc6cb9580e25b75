package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-shades/internal/bridge"
)

// DefaultDomain is the bridge domain enumerated for shades.
const DefaultDomain = "cover"

// Logger defines the logging interface used by the execution package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Metrics receives per-command and per-unit counts. *metrics.Collector
// satisfies it.
type Metrics interface {
	CommandIssued(command string, err error)
	DevicesMissing(unit string, n int)
	FiringStarted(automation string)
}

type noopMetrics struct{}

func (noopMetrics) CommandIssued(string, error) {}
func (noopMetrics) DevicesMissing(string, int)  {}
func (noopMetrics) FiringStarted(string)        {}

// Result is what one unit attempt did.
type Result struct {
	Requested int      `json:"requested"`
	Commanded []string `json:"commanded,omitempty"`
	Missing   []string `json:"missing,omitempty"`
}

// Activities are the unit bodies: each acquires its own bridge connection,
// resolves names against the bridge's enumeration and issues one command
// per device concurrently.
type Activities struct {
	bridge  bridge.Bridge
	domain  string
	logger  Logger
	metrics Metrics
}

// NewActivities creates the unit bodies over b. An empty domain means
// DefaultDomain; logger and m may be nil.
func NewActivities(b bridge.Bridge, domain string, logger Logger, m Metrics) *Activities {
	if domain == "" {
		domain = DefaultDomain
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &Activities{bridge: b, domain: domain, logger: logger, metrics: m}
}

// CloseShades lowers every named device.
func (a *Activities) CloseShades(ctx context.Context, names []string) (Result, error) {
	targets := make([]target, len(names))
	for i, n := range names {
		targets[i] = target{name: n}
	}
	return a.run(ctx, UnitClose, bridge.CommandLower, targets, func(ctx context.Context, c bridge.Conn, id string, _ target) error {
		return c.Lower(ctx, id)
	})
}

// OpenShades raises every named device.
func (a *Activities) OpenShades(ctx context.Context, names []string) (Result, error) {
	targets := make([]target, len(names))
	for i, n := range names {
		targets[i] = target{name: n}
	}
	return a.run(ctx, UnitOpen, bridge.CommandRaise, targets, func(ctx context.Context, c bridge.Conn, id string, _ target) error {
		return c.Raise(ctx, id)
	})
}

// SetShadeLevels moves every device to its level.
func (a *Activities) SetShadeLevels(ctx context.Context, levels []Level) (Result, error) {
	targets := make([]target, len(levels))
	for i, l := range levels {
		targets[i] = target{name: l.Name, percent: l.Percent}
	}
	return a.run(ctx, UnitSetLevels, bridge.CommandSetValue, targets, func(ctx context.Context, c bridge.Conn, id string, t target) error {
		return c.SetValue(ctx, id, t.percent)
	})
}

type target struct {
	name    string
	percent int
}

type issueFunc func(ctx context.Context, conn bridge.Conn, deviceID string, t target) error

// run is the shared unit body. An empty target list succeeds without
// touching the bridge.
func (a *Activities) run(ctx context.Context, unit, command string, targets []target, issue issueFunc) (Result, error) {
	res := Result{Requested: len(targets)}
	if len(targets) == 0 {
		a.logger.Debug("unit has no devices", "unit", unit)
		return res, nil
	}

	conn, err := a.bridge.Connect(ctx)
	if err != nil {
		return res, fmt.Errorf("%s: %w", unit, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			a.logger.Debug("closing bridge connection", "unit", unit, "error", cerr)
		}
	}()

	available, err := conn.Devices(ctx, a.domain)
	if err != nil {
		return res, fmt.Errorf("%s: enumerating %s devices: %w", unit, a.domain, err)
	}
	ids := make(map[string]string, len(available))
	for _, d := range available {
		if _, dup := ids[d.Name]; !dup {
			ids[d.Name] = d.ID
		}
	}

	type resolved struct {
		id string
		t  target
	}
	var work []resolved
	for _, t := range targets {
		id, ok := ids[t.name]
		if !ok {
			res.Missing = append(res.Missing, t.name)
			continue
		}
		work = append(work, resolved{id: id, t: t})
	}
	if len(res.Missing) > 0 {
		a.logger.Warn("devices not found on bridge",
			"unit", unit,
			"domain", a.domain,
			"missing", res.Missing,
		)
		a.metrics.DevicesMissing(unit, len(res.Missing))
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, w := range work {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := issue(ctx, conn, w.id, w.t)
			a.metrics.CommandIssued(command, err)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s %q: %w", command, w.t.name, err))
				mu.Unlock()
				return
			}
			a.logger.Debug("device command acknowledged", "unit", unit, "device", w.t.name, "command", command)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return res, fmt.Errorf("%s: awaiting commands: %w", unit, ctx.Err())
	}

	if len(errs) > 0 {
		return res, fmt.Errorf("%s: %d of %d commands failed: %w", unit, len(errs), len(work), errors.Join(errs...))
	}

	for _, w := range work {
		res.Commanded = append(res.Commanded, w.t.name)
	}
	return res, nil
}
