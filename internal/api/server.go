package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-shades/internal/automation"
	"github.com/nerrad567/gray-logic-shades/internal/device"
	"github.com/nerrad567/gray-logic-shades/internal/execution"
	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-shades/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-shades/internal/metrics"
	"github.com/nerrad567/gray-logic-shades/internal/schedule"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Firer runs one firing of an automation. *execution.Orchestrator
// satisfies it.
type Firer interface {
	Fire(ctx context.Context, a automation.Automation) execution.Report
}

// Planner computes next fire times. *schedule.Planner satisfies it.
type Planner interface {
	Next(s schedule.Schedule, after time.Time) (time.Time, error)
}

// BusStatus reports broker connectivity. *mqtt.Client satisfies it.
type BusStatus interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Logger      *logging.Logger
	Registry    *device.Registry
	Automations []automation.Automation
	Planner     Planner
	Firer       Firer
	Bus         BusStatus          // optional
	Metrics     *metrics.Collector // optional
	Version     string
}

// Server is the worker's ops HTTP API.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	registry    *device.Registry
	automations map[string]automation.Automation
	order       []string
	planner     Planner
	firer       Firer
	bus         BusStatus
	metrics     *metrics.Collector
	version     string
	startTime   time.Time

	mu     sync.Mutex
	server *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if deps.Firer == nil {
		return nil, fmt.Errorf("firer is required")
	}

	s := &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		registry:    deps.Registry,
		automations: make(map[string]automation.Automation, len(deps.Automations)),
		order:       make([]string, 0, len(deps.Automations)),
		planner:     deps.Planner,
		firer:       deps.Firer,
		bus:         deps.Bus,
		metrics:     deps.Metrics,
		version:     deps.Version,
		startTime:   time.Now(),
	}
	for _, a := range deps.Automations {
		s.automations[a.Name] = a
		s.order = append(s.order, a.Name)
	}
	return s, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	srv := s.server
	go func() {
		s.logger.Info("API server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
