package clientdata

import (
	"time"

	"github.com/rs/zerolog"
)

// StaleGrace is how long an expired download is kept as a fallback for
// fetches that fail.
const StaleGrace = 30 * 24 * time.Hour

// CleanupJob prunes downloads that expired more than the grace period ago
// and logs what the cache still holds.
type CleanupJob struct {
	repo  *Repository
	grace time.Duration
	log   zerolog.Logger
}

// NewCleanupJob creates a cleanup job keeping expired downloads for StaleGrace.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo:  repo,
		grace: StaleGrace,
		log:   log.With().Str("job", "client_data_cleanup").Logger(),
	}
}

func (j *CleanupJob) Run() error {
	deleted, err := j.repo.DeleteAllExpired(j.grace)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune cached downloads")
		return err
	}

	stats, err := j.repo.Stats()
	if err != nil {
		return err
	}
	for _, table := range AllTables {
		st := stats[table]
		j.log.Info().
			Str("table", table).
			Int64("pruned", deleted[table]).
			Int("entries", st.Entries).
			Int("stale", st.Stale).
			Int64("bytes", st.Bytes).
			Msg("Download cache pruned")
	}
	return nil
}

func (j *CleanupJob) Name() string {
	return "client_data_cleanup"
}
