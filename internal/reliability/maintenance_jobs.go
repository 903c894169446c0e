package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/bojops/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskUsageFunc reports filesystem usage for a path.
type DiskUsageFunc func(path string) (*disk.UsageStat, error)

const maintenanceTimeout = 5 * time.Minute

// DailyMaintenanceJob checks database integrity, truncates WAL files and
// watches free disk space.
type DailyMaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	minFreeGB float64
	diskUsage DiskUsageFunc
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job. The job fails
// when less than minFreeGB is available under dataDir.
func NewDailyMaintenanceJob(databases []*database.DB, dataDir string, minFreeGB float64, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		minFreeGB: minFreeGB,
		diskUsage: disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Str("database", db.Name()).Err(err).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
		}

		if _, err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Not critical, the next checkpoint catches up
			j.log.Warn().Str("database", db.Name()).Err(err).Msg("WAL checkpoint failed")
		}

		if stats, err := db.GetStats(); err == nil {
			j.log.Info().
				Str("database", db.Name()).
				Float64("size_mb", float64(stats.SizeBytes)/1024/1024).
				Float64("wal_size_mb", float64(stats.WALSizeBytes)/1024/1024).
				Int64("freelist_pages", stats.FreelistCount).
				Msg("Database metrics")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")
	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.diskUsage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().
		Float64("available_gb", availableGB).
		Float64("used_percent", usage.UsedPercent).
		Msg("Disk space check")

	if availableGB < j.minFreeGB {
		j.log.Error().Float64("available_gb", availableGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free under %s", availableGB, j.dataDir)
	}
	if availableGB < j.minFreeGB*4 {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}

// WeeklyMaintenanceJob vacuums the download cache.
type WeeklyMaintenanceJob struct {
	cacheDB *database.DB
	log     zerolog.Logger
}

// NewWeeklyMaintenanceJob creates a new weekly maintenance job
func NewWeeklyMaintenanceJob(cacheDB *database.DB, log zerolog.Logger) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{
		cacheDB: cacheDB,
		log:     log.With().Str("job", "weekly_maintenance").Logger(),
	}
}

// Run executes the weekly maintenance job
func (j *WeeklyMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	before, err := j.cacheDB.GetStats()
	if err != nil {
		return err
	}
	if _, err := j.cacheDB.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed for %s: %w", j.cacheDB.Name(), err)
	}
	after, err := j.cacheDB.GetStats()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", j.cacheDB.Name()).
		Int64("pages_before", before.PageCount).
		Int64("pages_after", after.PageCount).
		Int64("pages_reclaimed", before.PageCount-after.PageCount).
		Msg("VACUUM completed")
	return nil
}

// Name returns the job name for scheduler
func (j *WeeklyMaintenanceJob) Name() string {
	return "weekly_maintenance"
}

// SnapshotJob uploads a snapshot of the operation store and rotates old ones.
type SnapshotJob struct {
	publisher     *Publisher
	storePath     string
	retentionDays int
	log           zerolog.Logger
}

// NewSnapshotJob creates a job that snapshots storePath.
func NewSnapshotJob(publisher *Publisher, storePath string, retentionDays int, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		publisher:     publisher,
		storePath:     storePath,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "store_snapshot").Logger(),
	}
}

// Run publishes a snapshot, then rotates. Rotation failures are logged.
func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), maintenanceTimeout)
	defer cancel()

	if _, err := j.publisher.PublishSnapshot(ctx, j.storePath); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	if _, err := j.publisher.RotateSnapshots(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Snapshot rotation failed")
	}
	return nil
}

// Name returns the job name for scheduler
func (j *SnapshotJob) Name() string {
	return "store_snapshot"
}
