package main

import (
	"context"

	"github.com/robfig/cron/v3"

	appLog "dutycal/internal/log"
)

// cronLogger routes cron's own messages into appLog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}

// newScheduler registers the rollover job and, when configured, the
// snapshot job. Schedules run in the configured timezone.
func newScheduler(ctx context.Context, a *app) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(a.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(a.cfg.Rollover, func() { a.rollover(ctx) }); err != nil {
		return nil, err
	}
	appLog.Info("rollover scheduled", "cron", a.cfg.Rollover, "timezone", a.loc.String())

	if s := a.cfg.Snapshot; s != nil && s.Cron != "" {
		_, err := c.AddFunc(s.Cron, func() {
			if err := a.snapshot(ctx); err != nil {
				appLog.Error("scheduled snapshot failed", err, "url", s.URL)
			}
		})
		if err != nil {
			return nil, err
		}
		appLog.Info("snapshot scheduled", "cron", s.Cron, "output", s.Output)
	}
	return c, nil
}
