// Package daemon implements watch mode: it observes the source tree and
// regenerates the wiki when files change, with debouncing and an optional
// fixed-interval schedule.
package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/deepwiki/internal/config"
	"git.home.luguber.info/inful/deepwiki/internal/logfields"
	"git.home.luguber.info/inful/deepwiki/internal/pipeline"
)

// Runner executes one full wiki generation run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// Daemon drives repeated pipeline runs from file changes and schedules.
// Runs are strictly serialized; overlapping triggers collapse into one
// queued follow-up.
type Daemon struct {
	cfg    *config.Config
	runner Runner
	deb    *Debouncer
}

// New creates a daemon around the given runner.
func New(cfg *config.Config, runner Runner) *Daemon {
	return &Daemon{cfg: cfg, runner: runner, deb: NewDebouncer(cfg.Watch.Debounce)}
}

// Run performs an initial generation, then blocks watching the source tree
// until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := NewTreeWatcher(d.cfg.Repository.Path, d.cfg.Output.Dir)
	if err != nil {
		return err
	}
	defer watcher.Close()
	go watcher.Run(ctx)

	go func() {
		for range watcher.Changes() {
			d.deb.Change()
		}
	}()

	if d.cfg.Watch.Interval > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(d.cfg.Watch.Interval),
			gocron.NewTask(d.deb.Change),
			gocron.WithName("scheduled-regeneration"),
		)
		if err != nil {
			return fmt.Errorf("schedule periodic run: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
		slog.Info("Scheduled regeneration enabled", "interval", d.cfg.Watch.Interval)
	}

	slog.Info("Watching for changes", logfields.Path(d.cfg.Repository.Path), "debounce", d.cfg.Watch.Debounce)

	if err := d.runOnce(ctx); err != nil {
		return err
	}

	triggers := d.deb.Triggers(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch mode stopping")
			return nil
		case n, ok := <-triggers:
			if !ok {
				return nil
			}
			slog.Info("Change detected, regenerating", logfields.Files(n))
			if err := d.runOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// Watch mode survives failed runs; the next change retries.
				slog.Error("Regeneration failed", logfields.Error(err))
			}
		}
	}
}

func (d *Daemon) runOnce(ctx context.Context) error {
	for {
		d.deb.RunStarted()
		report, err := d.runner.Run(ctx)
		if err != nil {
			d.deb.RunFinished()
			return err
		}
		if defective := report.DefectivePages(); len(defective) > 0 {
			slog.Warn("Run completed with page defects", logfields.RunID(report.RunID), "pages", len(defective))
		}
		if !d.deb.RunFinished() {
			return nil
		}
		slog.Info("Changes arrived during run, regenerating once more")
	}
}
