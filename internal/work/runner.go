package work

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/aristath/bojops/internal/domain"
	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/modules/builder"
	"github.com/aristath/bojops/internal/modules/normalize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Fetcher retrieves the source tables for a unit.
type Fetcher interface {
	FetchRelease(ctx context.Context, month civil.Date) (normalize.Table, error)
	FetchResults(ctx context.Context, date civil.Date) (normalize.Table, error)
	FetchOffer(ctx context.Context, date civil.Date) (normalize.Table, error)
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	Collection *domain.Collection
	Completed  int
	Skipped    int
	Duration   time.Duration
}

// UnitError is returned when a unit fails in a way that aborts the run.
type UnitError struct {
	Unit Unit
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// Runner executes plans against a Fetcher.
type Runner struct {
	fetcher Fetcher
	workers int
	emitter EventEmitter
	log     zerolog.Logger
}

// NewRunner creates a runner with at most workers units in flight.
// emitter may be nil.
func NewRunner(fetcher Fetcher, workers int, emitter EventEmitter, log zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		fetcher: fetcher,
		workers: workers,
		emitter: emitter,
		log:     log.With().Str("component", "runner").Logger(),
	}
}

// Run executes every unit of plan and returns the operations they produced.
// Skippable unit failures are reported and counted; any other failure
// cancels the remaining units and is returned as a *UnitError.
func (r *Runner) Run(ctx context.Context, plan Plan, trigger string) (*Result, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := r.log.With().Str("run_id", runID).Logger()

	log.Info().
		Str("trigger", trigger).
		Int("releases", plan.Releases()).
		Int("dailies", plan.Dailies()).
		Str("start", plan.Start.String()).
		Str("today", plan.Today.String()).
		Msg("Run started")
	r.emit(&events.RunStartedData{
		RunID:         runID,
		Trigger:       trigger,
		ReleaseMonths: plan.Releases(),
		DailyDates:    plan.Dailies(),
	})

	progress := NewProgressReporter(r.emitter, log, runID, len(plan.Units))
	produced := make([][]*domain.Operation, len(plan.Units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	var failOnce sync.Once
	for i, unit := range plan.Units {
		g.Go(func() error {
			ops, err := r.runUnit(gctx, unit)
			if err != nil {
				if domain.IsSkippable(err) && gctx.Err() == nil {
					progress.Skipped(unit, err)
					return nil
				}
				failOnce.Do(func() {
					r.emit(&events.RunFailedData{
						RunID: runID,
						Unit:  unit.String(),
						Error: err.Error(),
						Fatal: domain.IsFatal(err),
					})
				})
				return &UnitError{Unit: unit, Err: err}
			}
			produced[i] = ops
			progress.Completed(unit, len(ops))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var unitErr *UnitError
		if errors.As(err, &unitErr) {
			log.Error().Err(err).Str("unit", unitErr.Unit.String()).Bool("fatal", domain.IsFatal(err)).Msg("Run failed")
		}
		return nil, err
	}

	// Units are merged in plan order so a later unit wins a shared date
	collection := domain.NewCollection()
	for _, ops := range produced {
		for _, op := range ops {
			collection.Put(op)
		}
	}

	completed, skipped := progress.Counts()
	result := &Result{
		RunID:      runID,
		Collection: collection,
		Completed:  completed - skipped,
		Skipped:    skipped,
		Duration:   time.Since(started),
	}
	log.Info().
		Int("operations", collection.Len()).
		Int("completed", result.Completed).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Run finished")
	return result, nil
}

func (r *Runner) runUnit(ctx context.Context, unit Unit) ([]*domain.Operation, error) {
	switch unit.Kind {
	case UnitRelease:
		return r.runRelease(ctx, unit.Date)
	case UnitDaily:
		op, err := r.runDaily(ctx, unit.Date)
		if err != nil || op == nil {
			return nil, err
		}
		return []*domain.Operation{op}, nil
	}
	return nil, fmt.Errorf("unknown unit kind %q", unit.Kind)
}

func (r *Runner) runRelease(ctx context.Context, month civil.Date) ([]*domain.Operation, error) {
	table, err := r.fetcher.FetchRelease(ctx, month)
	if err != nil {
		return nil, err
	}
	res, err := normalize.Release(table)
	if err != nil {
		return nil, err
	}
	if !res.FixedRate {
		r.log.Debug().
			Str("month", month.String()).
			Str("reason", res.FixedRateNote).
			Msg("Release has no fixed-rate table")
	}
	return builder.BuildAll(res.Rows)
}

// runDaily builds one day from its results and offer pages. A day whose
// offer page is missing is skipped as a whole.
func (r *Runner) runDaily(ctx context.Context, date civil.Date) (*domain.Operation, error) {
	results, err := r.fetcher.FetchResults(ctx, date)
	if err != nil {
		return nil, err
	}
	rows, err := normalize.DailyResults(date, results)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	offer, err := r.fetcher.FetchOffer(ctx, date)
	if err != nil {
		return nil, err
	}
	return builder.Build(date, rows, normalize.OfferNotes(date, offer))
}

func (r *Runner) emit(data events.EventData) {
	if r.emitter != nil {
		r.emitter.EmitTyped(eventModule, data)
	}
}
