package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	applogger "StockCast/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler runs jobs on six-field cron specs. A run that is still going when
// its next tick fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *applogger.Logger

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates a scheduler evaluating specs in loc.
func New(ctx context.Context, loc *time.Location, lgr *applogger.Logger) *Scheduler {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	lgr = lgr.With(applogger.String("component", "scheduler"))
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{lgr})),
		),
		ctx:    ctx,
		logger: lgr,
		jobs:   make(map[string]Job),
	}
}

// Register adds a job under name.
func (s *Scheduler) Register(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("register %s: already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.jobs[name] = job
	return nil
}

// RunNow executes a registered job immediately on the calling goroutine.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s: not registered", name)
	}
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	start := time.Now()
	s.logger.Info("Job started", applogger.String("job", name))
	err := job(s.ctx)
	if err != nil {
		s.logger.Error("Job failed", applogger.String("job", name), applogger.Error(err),
			applogger.Duration("elapsed", time.Since(start)))
		return err
	}
	s.logger.Info("Job finished", applogger.String("job", name), applogger.Duration("elapsed", time.Since(start)))
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", applogger.Int("jobs", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the earliest upcoming activation across registered jobs, zero when none.
func (s *Scheduler) Next() time.Time {
	now := time.Now().In(s.cron.Location())
	var next time.Time
	for _, e := range s.cron.Entries() {
		if t := e.Schedule.Next(now); next.IsZero() || t.Before(next) {
			next = t
		}
	}
	return next
}

type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(fields(keysAndValues), applogger.Error(err))...)
}

func fields(kv []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
