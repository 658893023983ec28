package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zippdf/zippdf/internal/convert"
)

const (
	JobSweepJobDirs  = "sweep_job_dirs"
	JobPurgePending  = "purge_pending"
	maxPurgeInterval = 10 * time.Minute
)

// setupJobs configures all scheduled jobs.
func (e *Engine) setupJobs() error {
	if e.cfg.SweepSchedule == "" {
		log.Warn("No sweep schedule configured, leftover job directories are not removed")
	} else if err := e.scheduler.AddCronJob(
		JobSweepJobDirs,
		"Sweep Job Directories",
		"Removes job directories left behind by an unclean shutdown",
		e.cfg.SweepSchedule,
		e.sweepJobDirs,
		true,
	); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	if err := e.scheduler.AddIntervalJob(
		JobPurgePending,
		"Purge Pending Requests",
		"Drops expired file prompts from the pending cache",
		min(e.pending.TTL(), maxPurgeInterval),
		e.purgePending,
		false,
	); err != nil {
		return fmt.Errorf("failed to add purge job: %w", err)
	}

	log.Info("Scheduled jobs configured successfully")
	return nil
}

func (e *Engine) sweepJobDirs(_ context.Context) error {
	n, err := convert.SweepStale(e.conv.WorkDir(), e.cfg.Conversion.StaleAfter)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("Swept stale job directories", "count", n)
	}
	return nil
}

func (e *Engine) purgePending(ctx context.Context) error {
	e.pending.DeleteExpired(ctx)
	return nil
}
