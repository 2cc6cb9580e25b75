package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-shades/internal/automation"
	"github.com/nerrad567/gray-logic-shades/internal/device"
	"github.com/nerrad567/gray-logic-shades/internal/execution"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/devices", s.handleListDevices)
		r.Get("/devices/{name}", s.handleGetDevice)

		r.Route("/automations", func(r chi.Router) {
			r.Get("/", s.handleListAutomations)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetAutomation)
				r.Post("/run", s.handleRunAutomation)
			})
		})
	})

	return r
}

// handleHealth reports liveness and bus connectivity. A failing bus check
// yields 503 so orchestrators can restart the worker.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":         "ok",
		"version":        s.version,
		"mqtt_connected": false,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"automations":    len(s.order),
		"devices":        s.registry.Len(),
	}
	code := http.StatusOK
	if s.bus != nil {
		if err := s.bus.HealthCheck(r.Context()); err != nil {
			body["status"] = "degraded"
			body["mqtt_error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			body["mqtt_connected"] = true
		}
	}
	writeJSON(w, code, body)
}

// handleListDevices lists the device registry. Optional filters:
// ?type=SHADE and ?tag=dining (repeatable, any-match).
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		devType device.Type
		byType  bool
	)
	if raw := q.Get("type"); raw != "" {
		t, err := device.ParseType(raw)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		devType, byType = t, true
	}

	var devices []device.Device
	switch tags := q["tag"]; {
	case len(tags) > 0:
		devices = s.registry.MatchAnyTag(tags)
		if byType {
			filtered := make([]device.Device, 0, len(devices))
			for _, d := range devices {
				if d.Type == devType {
					filtered = append(filtered, d)
				}
			}
			devices = filtered
		}
	case byType:
		devices = s.registry.ByType(devType)
	default:
		devices = s.registry.List()
	}

	if devices == nil {
		devices = []device.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
		"tags":    s.registry.Tags(),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.registry.MustGet(chi.URLParam(r, "name"))
	if errors.Is(err, device.ErrDeviceNotFound) {
		writeNotFound(w, err.Error())
		return
	}
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// automationView is an automation plus its next fire time.
type automationView struct {
	automation.Automation
	NextFire *time.Time `json:"next_fire,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func (s *Server) view(a automation.Automation, now time.Time) automationView {
	v := automationView{Automation: a}
	next, err := s.planner.Next(a.Schedule, now)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	if !next.IsZero() {
		v.NextFire = &next
	}
	return v
}

func (s *Server) handleListAutomations(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	views := make([]automationView, 0, len(s.order))
	for _, name := range s.order {
		views = append(views, s.view(s.automations[name], now))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"automations": views,
		"count":       len(views),
	})
}

func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.view(a, time.Now()))
}

// runResponse wraps a firing report.
type runResponse struct {
	OK     bool             `json:"ok"`
	Report execution.Report `json:"report"`
}

// handleRunAutomation fires an automation immediately and returns its
// report once every unit has finished.
func (s *Server) handleRunAutomation(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.logger.Info("manual firing requested",
		"automation", a.Name,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	report := s.firer.Fire(r.Context(), a)
	writeJSON(w, http.StatusOK, runResponse{OK: report.OK(), Report: report})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (automation.Automation, bool) {
	name := chi.URLParam(r, "name")
	a, ok := s.automations[name]
	if !ok {
		writeNotFound(w, "automation not found: "+name)
	}
	return a, ok
}
