// Package schedule repeats generation runs on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hugo-lorenzo-mato/marketlog/internal/compose"
	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// Runner performs one generation run.
type Runner interface {
	Run(ctx context.Context, params compose.RunParams) (*compose.RunResult, error)
}

// Scheduler triggers a run on every tick of a standard five-field cron
// expression. Ticks that arrive while a run is still in progress are
// skipped, so there is never more than one writer.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	runner Runner
	params compose.RunParams
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	ctx context.Context
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithParams sets the context and model passed to every run. The tag is
// always replaced with the tick's date.
func WithParams(params compose.RunParams) Option {
	return func(s *Scheduler) {
		s.params = params
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for tags.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New validates spec and prepares a scheduler. Nothing runs until Run.
func New(spec string, runner Runner, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		spec:   spec,
		runner: runner,
		logger: slog.Default(),
		now:    time.Now,
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	logger := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, core.ErrConfig(core.CodeInvalidConfig,
			fmt.Sprintf("invalid cron expression %q", spec)).WithCause(err)
	}
	return s, nil
}

// Next returns the next scheduled tick.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(s.now().UTC())
}

// Run blocks until ctx is done, then waits for an in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started", "cron", s.spec, "next", s.Next())

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	params := s.params
	params.Tag = s.now().UTC().Format(core.TagDateLayout)

	result, err := s.runner.Run(ctx, params)
	if err != nil {
		// The next tick tries again.
		s.logger.Error("scheduled run failed",
			"tag", params.Tag,
			"category", core.GetCategory(err),
			"error", err)
		return
	}
	s.logger.Info("scheduled run complete",
		"run_id", result.RunID,
		"version", result.Record.Version,
		"duration", result.Duration,
		"next", s.Next())
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
