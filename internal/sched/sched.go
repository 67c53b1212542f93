// Package sched converts duration-string intervals into recurring triggers.
// Each trigger fires on its cadence regardless of how long the previous
// invocation ran; any mutual exclusion is the invoked handler's burden.
package sched

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Engine struct {
	c   *cron.Cron
	log *zap.Logger
}

func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		c:   cron.New(),
		log: log.With(zap.String("component", "sched")),
	}
}

// Every registers fn to run once per interval ("30s", "1h"), anchored at
// the moment the engine starts. Multiple schedules run independently.
func (e *Engine) Every(interval, name string, fn func()) error {
	d, err := time.ParseDuration(interval)
	if err != nil {
		return fmt.Errorf("parse interval %q: %w", interval, err)
	}
	if d <= 0 {
		return fmt.Errorf("interval %q: must be positive", interval)
	}

	log := e.log.With(zap.String("schedule", name), zap.Duration("interval", d))
	e.c.Schedule(cron.Every(d), cron.FuncJob(func() {
		log.Debug("tick")
		fn()
	}))
	log.Info("schedule registered")
	return nil
}

// Start begins firing triggers. Each job runs in its own goroutine, so a
// slow handler never delays the next tick.
func (e *Engine) Start() { e.c.Start() }

// Stop halts the triggers and returns once the engine's scheduling loop has
// exited; running jobs are not interrupted.
func (e *Engine) Stop() {
	ctx := e.c.Stop()
	<-ctx.Done()
}
