package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/bojops/internal/events"
	"github.com/aristath/bojops/internal/work"
)

// StatusMonitor periodically publishes system status and emits an event
// whenever the store or refresh state changed since the last check.
type StatusMonitor struct {
	emitter work.EventEmitter
	system  *SystemHandlers
	log     zerolog.Logger

	lastOperations int
	lastDate       string
	lastRefreshing bool
	checked        bool
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(emitter work.EventEmitter, system *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		emitter: emitter,
		system:  system,
		log:     log.With().Str("component", "status_monitor").Logger(),
	}
}

// Start begins periodic status monitoring until ctx is done
func (m *StatusMonitor) Start(ctx context.Context, interval time.Duration) {
	go m.monitor(ctx, interval)
}

func (m *StatusMonitor) monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check emits SystemStatusChanged on the first call and on every change of
// operation count, last date or refresh state. It reports whether it emitted.
func (m *StatusMonitor) check() bool {
	status := m.system.Snapshot()
	changed := !m.checked ||
		status.Operations != m.lastOperations ||
		status.LastDate != m.lastDate ||
		status.Refreshing != m.lastRefreshing
	m.checked = true
	m.lastOperations = status.Operations
	m.lastDate = status.LastDate
	m.lastRefreshing = status.Refreshing
	if !changed {
		return false
	}

	m.emitter.EmitTyped("status_monitor", &events.SystemStatusData{
		CPUPercent:    status.CPUPercent,
		MemoryPercent: status.MemoryPercent,
		Operations:    status.Operations,
		LastDate:      status.LastDate,
		Refreshing:    status.Refreshing,
	})
	return true
}
