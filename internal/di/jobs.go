// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"
	"time"

	"github.com/aristath/bojops/internal/clientdata"
	"github.com/aristath/bojops/internal/config"
	"github.com/aristath/bojops/internal/reliability"
	"github.com/aristath/bojops/internal/scheduler"
	"github.com/rs/zerolog"
)

// refreshTimeout bounds a scheduled refresh, including the report.
const refreshTimeout = 30 * time.Minute

// RegisterJobs creates the scheduler and registers every background job.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.Service == nil {
		return fmt.Errorf("container services are not initialized")
	}

	sched := scheduler.New(log)
	add := func(schedule string, job scheduler.Job) error {
		if err := sched.AddJob(schedule, job); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
		return nil
	}

	// Refresh after the evening publication on business days
	if err := add(cfg.RefreshSchedule, scheduler.NewRefreshJob(container.Service, refreshTimeout, log)); err != nil {
		return err
	}

	dbs := container.Databases()
	if err := add("0 0 * * * *", scheduler.NewCheckWALCheckpointsJob(dbs, log)); err != nil {
		return err
	}
	if err := add(cfg.MaintenanceSchedule, reliability.NewDailyMaintenanceJob(dbs, cfg.DataDir, cfg.MinFreeDiskGB, log)); err != nil {
		return err
	}
	if err := add("0 0 4 * * SUN", reliability.NewWeeklyMaintenanceJob(container.CacheDB, log)); err != nil {
		return err
	}
	if err := add("0 30 3 * * *", clientdata.NewCleanupJob(container.ClientDataRepo, log)); err != nil {
		return err
	}

	if container.Publisher != nil {
		snapshot := reliability.NewSnapshotJob(container.Publisher, cfg.StoreFile, cfg.S3.SnapshotRetentionDays, log)
		if err := add(cfg.S3.SnapshotSchedule, snapshot); err != nil {
			return err
		}
	}

	container.Scheduler = sched
	return nil
}
