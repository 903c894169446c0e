// Package events provides the in-process event bus used for refresh progress.
package events

// EventType represents different event types
type EventType string

const (
	// Refresh run lifecycle
	RunStarted    EventType = "RUN_STARTED"
	UnitSkipped   EventType = "UNIT_SKIPPED"
	UnitCompleted EventType = "UNIT_COMPLETED"
	RunCompleted  EventType = "RUN_COMPLETED"
	RunFailed     EventType = "RUN_FAILED"

	// Output
	ReportRendered EventType = "REPORT_RENDERED"

	// System
	SystemStatusChanged EventType = "SYSTEM_STATUS_CHANGED"
	ErrorOccurred       EventType = "ERROR_OCCURRED"
)
