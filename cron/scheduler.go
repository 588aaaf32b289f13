package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"warehouse.GO/app"
)

// zapLogger adapts zap to cron.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// StartCron schedules the built-in jobs that have a schedule in config plus
// every registered job, and starts the scheduler in the application's zone.
// A panicking job is logged; an overrunning job skips its next tick.
func StartCron(a *app.App) (*cron.Cron, error) {
	logger := zapLogger{s: a.Log.Named("cron").Sugar()}
	loc := a.Config.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for name, schedule := range a.Config.CronSchedules() {
		if schedule == "" {
			continue
		}
		name := name
		if _, err := c.AddFunc(schedule, func() { _ = RunJob(context.Background(), a, name) }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
		}
	}
	for name, j := range Jobs() {
		run := j.Run
		if _, err := c.AddFunc(j.Schedule, func() { run() }); err != nil {
			return nil, fmt.Errorf("schedule %s (%q): %w", name, j.Schedule, err)
		}
	}
	c.Start()
	a.Log.Info("cron started", zap.Int("entries", len(c.Entries())))
	return c, nil
}
