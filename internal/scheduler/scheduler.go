// Package scheduler repeats ingestion runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/dealio/dealio/internal/ingest"
	"github.com/dealio/dealio/internal/logger"
)

// DefaultSpec runs every six hours.
const DefaultSpec = "0 */6 * * *"

// Runner performs one ingestion run.
type Runner interface {
	Run(ctx context.Context) (ingest.Summary, error)
}

// Scheduler runs the Runner once on start and then on every cron tick.
// A tick that fires while a run is in progress is skipped.
type Scheduler struct {
	runner Runner
	spec   string
	logger logger.Logger
}

// New validates spec (standard five-field syntax or a descriptor such as
// "@hourly"). An empty spec means DefaultSpec.
func New(runner Runner, spec string, log logger.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Scheduler{runner: runner, spec: spec, logger: log}, nil
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("initial ingestion run")
	s.runOnce(ctx)

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	c.Start()
	s.logger.Info("scheduler running", logger.String("spec", s.spec))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	sum, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("ingestion run failed", logger.String("run_id", sum.RunID), logger.Error(err))
	}
}

// cronLogger routes cron's own messages into the structured logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
