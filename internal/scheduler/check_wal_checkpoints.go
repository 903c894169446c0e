package scheduler

import (
	"github.com/aristath/bojops/internal/database"
	"github.com/rs/zerolog"
)

// pendingFramesLimit is the backlog above which a PASSIVE checkpoint is
// followed by a TRUNCATE one.
const pendingFramesLimit = 1000

// CheckWALCheckpointsJob checkpoints each database passively and truncates
// WAL files whose backlog a passive pass could not drain.
type CheckWALCheckpointsJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

func NewCheckWALCheckpointsJob(databases []*database.DB, log zerolog.Logger) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		databases: databases,
		log:       log.With().Str("job", "check_wal_checkpoints").Logger(),
	}
}

func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run never fails; per-database problems are logged and the next run retries.
func (j *CheckWALCheckpointsJob) Run() error {
	var checked, truncated int
	for _, db := range j.databases {
		if db == nil {
			continue
		}
		dlog := j.log.With().Str("database", db.Name()).Logger()

		st, err := db.WALCheckpoint("PASSIVE")
		if err != nil {
			dlog.Warn().Err(err).Msg("Passive checkpoint failed")
			continue
		}
		checked++

		if st.Pending() <= pendingFramesLimit {
			dlog.Debug().Int("wal_frames", st.Frames).Msg("WAL within limits")
			continue
		}

		after, err := db.WALCheckpoint("TRUNCATE")
		if err != nil || after.Busy {
			dlog.Warn().Err(err).
				Int("pending_frames", st.Pending()).
				Msg("WAL backlog could not be truncated, readers still active")
			continue
		}
		truncated++
		dlog.Info().Int("pending_frames", st.Pending()).Msg("WAL truncated")
	}

	j.log.Info().Int("checked", checked).Int("truncated", truncated).Msg("WAL checkpoints done")
	return nil
}
