package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"warehouse.GO/app"
)

// JobFunc is a built-in job bound to the application.
type JobFunc func(ctx context.Context) error

// Builtin returns the jobs every deployment has, keyed like
// config.CronSchedules.
func Builtin(a *app.App) map[string]JobFunc {
	return map[string]JobFunc{
		"sheets:export": func(ctx context.Context) error {
			_, err := a.Exporter.Run(ctx)
			return err
		},
		"stock:reconcile": func(ctx context.Context) error {
			fixed, err := a.Calc.RecalculateAll(ctx)
			if err != nil {
				return err
			}
			a.Log.Info("stock reconciled", zap.Int("corrected", fixed))
			return nil
		},
		"notifications:purge": func(ctx context.Context) error {
			n, err := a.Notifications.PurgeExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			a.Log.Info("expired notifications purged", zap.Int64("deleted", n))
			return nil
		},
	}
}

// RunJob runs one job by name, built-in or registered, and reports how long
// it took.
func RunJob(ctx context.Context, a *app.App, name string, args ...string) error {
	start := time.Now()
	log := a.Log.Named("cron").With(zap.String("job", name))
	if fn, ok := Builtin(a)[name]; ok {
		if err := fn(ctx); err != nil {
			log.Error("job failed", zap.Error(err), zap.Duration("took", time.Since(start)))
			return err
		}
		log.Info("job finished", zap.Duration("took", time.Since(start)))
		return nil
	}
	if j, ok := Jobs()[name]; ok {
		j.Run(args...)
		log.Info("job finished", zap.Duration("took", time.Since(start)))
		return nil
	}
	return fmt.Errorf("unknown job: %s", name)
}
