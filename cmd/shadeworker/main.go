// Gray Logic Shades - scheduled shade and switch automation worker.
//
// The worker loads a manifest of devices and automations, schedules each
// automation on its cron or sun-relative trigger, and on every firing drives
// the devices to their target states through a protocol bridge on MQTT.
//
// Usage:
//
//	shadeworker            run the worker until SIGINT/SIGTERM
//	shadeworker -check     validate the manifest, print next fire times, exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nerrad567/gray-logic-shades/internal/api"
	"github.com/nerrad567/gray-logic-shades/internal/automation"
	"github.com/nerrad567/gray-logic-shades/internal/bridge"
	"github.com/nerrad567/gray-logic-shades/internal/execution"
	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-shades/internal/metrics"
	"github.com/nerrad567/gray-logic-shades/internal/schedule"
	"github.com/nerrad567/gray-logic-shades/internal/workflow"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	defaultEnvPath    = ".env"

	// shutdownTimeout bounds how long in-flight firings may drain.
	shutdownTimeout = 30 * time.Second
)

func main() {
	check := flag.Bool("check", false, "validate the automation manifest, print next fire times and exit")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *check, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - check: When true, only validate the manifest and report next fire times
//   - out: Destination for the check report
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, check bool, out io.Writer) error {
	log := logging.Default()

	if err := config.LoadEnvFile(getEnvPath()); err != nil {
		return err
	}
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting shade worker",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	registry, automations, err := automation.Load(cfg.Automations.Path, log.Component("manifest"))
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	planner, err := newPlanner(cfg, loc)
	if err != nil {
		return err
	}

	// Resolve every trigger up front so a bad cron fails startup, not a firing.
	triggers := make(map[string]schedule.Trigger, len(automations))
	for _, a := range automations {
		trig, terr := planner.Trigger(a.Schedule)
		if terr != nil {
			return fmt.Errorf("automation %q: %w", a.Name, terr)
		}
		triggers[a.Name] = trig
	}

	if check {
		return writeCheckReport(out, automations, triggers, time.Now().In(loc))
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.Component("mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"tls", cfg.MQTT.TLS.Enabled,
	)

	collector := metrics.New()

	deviceBridge := bridge.NewMQTTBridge(mqttClient, bridge.Options{
		Protocol:          cfg.Bridge.Protocol,
		QoS:               byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
		RequestTimeout:    cfg.Bridge.RequestTimeout,
		CommandsPerSecond: cfg.Bridge.CommandsPerSecond,
		Burst:             cfg.Bridge.Burst,
		Source:            "shadeworker:" + cfg.Site.ID,
	})
	deviceBridge.SetLogger(log.Component("bridge"))
	defer func() {
		if closeErr := deviceBridge.Close(); closeErr != nil {
			log.Warn("error closing device bridge", "error", closeErr)
		}
	}()

	retry := retryPolicy(cfg.Scheduler.Retry)
	engine := workflow.NewEngine(workflow.Options{
		TaskQueue:      cfg.Scheduler.TaskQueue,
		DefaultTimeout: cfg.Scheduler.UnitTimeout,
		DefaultRetry:   retry,
		Logger:         log.Component("workflow"),
		Observer:       collector,
	})

	execLog := log.Component("execution")
	orchestrator := execution.NewOrchestrator(engine,
		execution.NewActivities(deviceBridge, cfg.Bridge.Domain, execLog, collector),
		execution.Options{
			UnitTimeout: cfg.Scheduler.UnitTimeout,
			Retry:       retry,
			Logger:      execLog,
			Metrics:     collector,
			Announcer:   execution.NewMQTTAnnouncer(mqttClient),
		},
	)

	scheduler := workflow.NewScheduler(loc, log.Component("scheduler"))
	for _, a := range automations {
		if err := scheduler.Register(a.Name, triggers[a.Name], orchestrator.Job(a)); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := scheduler.Stop(shutdownCtx); stopErr != nil {
			log.Warn("scheduler stop", "error", stopErr)
		}
		if drainErr := engine.Drain(shutdownCtx); drainErr != nil {
			log.Warn("units still running at shutdown", "error", drainErr)
		}
	}()

	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			Logger:      log.Component("api"),
			Registry:    registry,
			Automations: automations,
			Planner:     planner,
			Firer:       orchestrator,
			Bus:         mqttClient,
			Metrics:     collector,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"automations", len(automations),
		"devices", registry.Len(),
		"task_queue", cfg.Scheduler.TaskQueue,
	)
	for _, e := range scheduler.Entries() {
		log.Debug("automation scheduled", "automation", e.Name, "next", e.Next)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// newPlanner builds the trigger planner for the site.
func newPlanner(cfg *config.Config, loc *time.Location) (*schedule.Planner, error) {
	direction, err := schedule.ParseDirection(cfg.Scheduler.SunOffsetDirection)
	if err != nil {
		return nil, err
	}
	solar, err := schedule.NewSolar(cfg.Site.Location.Latitude, cfg.Site.Location.Longitude, loc)
	if err != nil {
		return nil, err
	}
	return schedule.NewPlanner(loc, solar, direction), nil
}

func retryPolicy(rc config.RetryConfig) workflow.RetryPolicy {
	return workflow.RetryPolicy{
		MaxAttempts:        rc.MaxAttempts,
		InitialInterval:    rc.InitialInterval,
		BackoffCoefficient: rc.BackoffCoefficient,
		MaxInterval:        rc.MaxInterval,
	}
}

// writeCheckReport prints one line per automation with its next fire time.
func writeCheckReport(out io.Writer, automations []automation.Automation, triggers map[string]schedule.Trigger, now time.Time) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AUTOMATION\tSCHEDULE\tDEVICES\tNEXT FIRE")
	for _, a := range automations {
		next := "never"
		if t := triggers[a.Name].Next(now); !t.IsZero() {
			next = t.Format(time.RFC3339)
		}
		targets := make([]string, 0, len(a.Devices))
		for _, d := range a.Devices {
			targets = append(targets, d.Device.Name+"="+d.State.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Name, a.Schedule, strings.Join(targets, ", "), next)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing check report: %w", err)
	}
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("SHADES_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func getEnvPath() string {
	if path := os.Getenv("SHADES_ENV_FILE"); path != "" {
		return path
	}
	return defaultEnvPath
}
