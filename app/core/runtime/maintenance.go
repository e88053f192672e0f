// Package runtime wires the long-lived pieces together: maintenance
// jobs on the scheduler and the status snapshot the CLI reports.
package runtime

import (
	"context"
	"time"

	config "arbor/app/configs"
	"arbor/app/core/history"
	"arbor/app/core/scheduler"
	"arbor/app/core/store"
	"arbor/app/pkg/logger"
)

const (
	StateBackupJob  = "state-backup"
	HistoryPruneJob = "history-prune"
)

// RegisterMaintenanceJobs installs the periodic jobs. Intervals come
// from the config at registration time; directories and retention are
// re-read on every run so config edits apply without a restart.
func RegisterMaintenanceJobs(jobScheduler *scheduler.Scheduler, manager *config.Manager, state *store.Store, transcript *history.Store) error {
	if jobScheduler == nil || manager == nil {
		return nil
	}
	cfg := manager.Get()

	if state != nil {
		job := scheduler.JobSpec{
			Name:       StateBackupJob,
			Interval:   time.Duration(cfg.Maintenance.BackupIntervalMin) * time.Minute,
			Timeout:    20 * time.Second,
			RunOnStart: true,
			Run: func(ctx context.Context) error {
				current := manager.Get()
				path, err := state.Backup(current.State.BackupDir, current.State.BackupKeep)
				if err != nil {
					return err
				}
				logger.Info("%s wrote %s", StateBackupJob, path)
				return nil
			},
		}
		if err := jobScheduler.Register(job); err != nil {
			return err
		}
	}

	if transcript != nil {
		job := scheduler.JobSpec{
			Name:     HistoryPruneJob,
			Interval: time.Duration(cfg.Maintenance.PruneIntervalMin) * time.Minute,
			Timeout:  20 * time.Second,
			Run: func(ctx context.Context) error {
				current := manager.Get()
				cutoff := time.Now().Add(-time.Duration(current.History.RetentionDays) * 24 * time.Hour)
				pruned, err := transcript.PruneBefore(ctx, cutoff)
				if err != nil {
					return err
				}
				if pruned > 0 {
					logger.Info("%s removed %d message(s) older than %s", HistoryPruneJob, pruned, cutoff.UTC().Format(time.RFC3339))
				}
				return nil
			},
		}
		if err := jobScheduler.Register(job); err != nil {
			return err
		}
	}
	return nil
}
