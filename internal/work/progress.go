package work

import (
	"sync"
	"time"

	"github.com/aristath/bojops/internal/events"
	"github.com/rs/zerolog"
)

// EventEmitter defines the interface for emitting events
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Throttle interval for progress events (avoid spam)
const progressThrottleInterval = 100 * time.Millisecond

const eventModule = "work"

// ProgressReporter tracks unit completion for one run and reports it as
// events and log lines. Skips and the final unit are never throttled.
type ProgressReporter struct {
	emitter EventEmitter
	log     zerolog.Logger
	runID   string
	total   int

	mu         sync.Mutex
	current    int
	skipped    int
	lastReport time.Time
}

// NewProgressReporter creates a reporter for a run of total units.
// emitter may be nil.
func NewProgressReporter(emitter EventEmitter, log zerolog.Logger, runID string, total int) *ProgressReporter {
	return &ProgressReporter{
		emitter: emitter,
		log:     log,
		runID:   runID,
		total:   total,
	}
}

// Completed records a finished unit that produced operations.
func (r *ProgressReporter) Completed(unit Unit, operations int) {
	r.mu.Lock()
	r.current++
	current := r.current
	throttled := time.Since(r.lastReport) < progressThrottleInterval && current != r.total
	if !throttled {
		r.lastReport = time.Now()
	}
	r.mu.Unlock()

	r.log.Debug().
		Str("unit", unit.String()).
		Int("operations", operations).
		Int("current", current).
		Int("total", r.total).
		Msg("Unit completed")

	if throttled || r.emitter == nil {
		return
	}
	r.emitter.EmitTyped(eventModule, &events.UnitCompletedData{
		RunID:      r.runID,
		Unit:       unit.String(),
		Operations: operations,
		Current:    current,
		Total:      r.total,
	})
}

// Skipped records a unit whose publication was missing or unreadable.
func (r *ProgressReporter) Skipped(unit Unit, reason error) {
	r.mu.Lock()
	r.current++
	r.skipped++
	r.mu.Unlock()

	r.log.Info().
		Str("unit", unit.String()).
		Str("reason", reason.Error()).
		Msg("Unit skipped")

	if r.emitter == nil {
		return
	}
	r.emitter.EmitTyped(eventModule, &events.UnitSkippedData{
		RunID:  r.runID,
		Unit:   unit.String(),
		Reason: reason.Error(),
	})
}

// Counts returns the number of finished and skipped units.
func (r *ProgressReporter) Counts() (current, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.skipped
}
