package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/bojops/internal/work"
	"github.com/rs/zerolog"
)

// Refresher runs one ingestion refresh. *work.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, trigger string) (*work.RefreshResult, error)
}

// RefreshJob runs a scheduled refresh.
type RefreshJob struct {
	refresher Refresher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshJob creates a refresh job bounded by timeout.
func NewRefreshJob(refresher Refresher, timeout time.Duration, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		refresher: refresher,
		timeout:   timeout,
		log:       log.With().Str("job", "refresh").Logger(),
	}
}

// Name returns the job name
func (j *RefreshJob) Name() string {
	return "refresh"
}

// Run refreshes the store. A refresh already in progress is not an error.
func (j *RefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	res, err := j.refresher.Refresh(ctx, "schedule")
	if errors.Is(err, work.ErrRefreshInProgress) {
		j.log.Info().Msg("Refresh already running, skipping scheduled run")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Info().
		Str("run_id", res.RunID).
		Int("fetched", res.Fetched).
		Int("operations", res.Operations).
		Int("skipped", res.Skipped).
		Bool("saved", res.Saved).
		Msg("Scheduled refresh completed")
	return nil
}
