package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the body of a scheduled entry. ctx is cancelled when the
// scheduler is stopped and in-flight jobs do not drain in time.
type Job func(ctx context.Context)

// Entry describes one registered schedule.
type Entry struct {
	Name string    `json:"name"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitzero"`
}

// Scheduler fires named jobs on their triggers.
//
// A job that is still running when its trigger fires again is skipped, and
// a panicking job is recovered and logged.
type Scheduler struct {
	cron   *cron.Cron
	logger Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler creates a stopped scheduler evaluating triggers in loc.
func NewScheduler(loc *time.Location, logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{logger: logger}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Register adds a named job. Names are unique.
func (s *Scheduler) Register(name string, trigger cron.Schedule, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}
	id := s.cron.Schedule(trigger, cron.FuncJob(func() {
		job(s.ctx)
	}))
	s.entries[name] = id

	s.logger.Debug("schedule registered", "name", name)
	return nil
}

// Start begins firing entries. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "entries", len(s.Entries()))
}

// Stop halts the scheduler and waits for running jobs until ctx is done,
// at which point their context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.cancel()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		s.logger.Warn("scheduler stopped with jobs still running")
		return ctx.Err()
	}
}

// Next returns the next fire time of the named entry. The zero time means
// the scheduler has not been started.
func (s *Scheduler) Next(name string) (time.Time, error) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return s.cron.Entry(id).Next, nil
}

// Entries lists every registered entry, sorted by name.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for name, id := range s.entries {
		e := s.cron.Entry(id)
		out = append(out, Entry{Name: name, Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	logger Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Warn("cron: "+msg, append(keysAndValues, "error", err)...)
}
