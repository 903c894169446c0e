package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// RunStartedData contains data for RunStarted events
type RunStartedData struct {
	RunID         string `json:"run_id"`
	Trigger       string `json:"trigger"` // "cli", "schedule", "api"
	ReleaseMonths int    `json:"release_months"`
	DailyDates    int    `json:"daily_dates"`
}

// EventType returns the event type for RunStartedData
func (d *RunStartedData) EventType() EventType {
	return RunStarted
}

// UnitSkippedData contains data for UnitSkipped events. A unit is skipped
// when its release or page is missing or lacks the expected table.
type UnitSkippedData struct {
	RunID  string `json:"run_id"`
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// EventType returns the event type for UnitSkippedData
func (d *UnitSkippedData) EventType() EventType {
	return UnitSkipped
}

// UnitCompletedData contains data for UnitCompleted events
type UnitCompletedData struct {
	RunID      string `json:"run_id"`
	Unit       string `json:"unit"`
	Operations int    `json:"operations"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
}

// EventType returns the event type for UnitCompletedData
func (d *UnitCompletedData) EventType() EventType {
	return UnitCompleted
}

// RunCompletedData contains data for RunCompleted events
type RunCompletedData struct {
	RunID      string  `json:"run_id"`
	Operations int     `json:"operations"`
	Replaced   int     `json:"replaced"`
	Skipped    int     `json:"skipped"`
	Saved      bool    `json:"saved"`
	Duration   float64 `json:"duration"` // seconds
}

// EventType returns the event type for RunCompletedData
func (d *RunCompletedData) EventType() EventType {
	return RunCompleted
}

// RunFailedData contains data for RunFailed events
type RunFailedData struct {
	RunID string `json:"run_id"`
	Unit  string `json:"unit,omitempty"`
	Error string `json:"error"`
	// Fatal marks errors that need a classification rule update rather than a retry
	Fatal bool `json:"fatal"`
}

// EventType returns the event type for RunFailedData
func (d *RunFailedData) EventType() EventType {
	return RunFailed
}

// ReportRenderedData contains data for ReportRendered events
type ReportRenderedData struct {
	Path      string `json:"path"`
	Pages     int    `json:"pages"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Published string `json:"published,omitempty"` // object key when uploaded
}

// EventType returns the event type for ReportRenderedData
func (d *ReportRenderedData) EventType() EventType {
	return ReportRendered
}

// SystemStatusData contains data for SystemStatusChanged events
type SystemStatusData struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Operations    int     `json:"operations"`
	LastDate      string  `json:"last_date,omitempty"`
	Refreshing    bool    `json:"refreshing"`
}

// EventType returns the event type for SystemStatusData
func (d *SystemStatusData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// EventWithData represents an event with typed data
type EventWithData struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}

// envelope is the wire form of EventWithData with the payload left raw.
type envelope struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Module    string          `json:"module"`
	Data      json.RawMessage `json:"data"`
}

// payloads builds the empty typed payload for each known event type.
var payloads = map[EventType]func() EventData{
	RunStarted:          func() EventData { return &RunStartedData{} },
	UnitSkipped:         func() EventData { return &UnitSkippedData{} },
	UnitCompleted:       func() EventData { return &UnitCompletedData{} },
	RunCompleted:        func() EventData { return &RunCompletedData{} },
	RunFailed:           func() EventData { return &RunFailedData{} },
	ReportRendered:      func() EventData { return &ReportRenderedData{} },
	SystemStatusChanged: func() EventData { return &SystemStatusData{} },
	ErrorOccurred:       func() EventData { return &ErrorEventData{} },
}

func (e *EventWithData) MarshalJSON() ([]byte, error) {
	env := envelope{Type: e.Type, Timestamp: e.Timestamp, Module: e.Module, Data: json.RawMessage("null")}
	if e.Data != nil {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the payload into the type registered for the event
// type, or into GenericEventData for types it does not know.
func (e *EventWithData) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	*e = EventWithData{Type: env.Type, Timestamp: env.Timestamp, Module: env.Module}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}

	var data EventData = &GenericEventData{Type: env.Type}
	if mk, ok := payloads[env.Type]; ok {
		data = mk()
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	e.Data = data
	return nil
}

// GenericEventData carries the raw fields of an event type without a
// dedicated payload struct.
type GenericEventData struct {
	Type EventType
	Data map[string]interface{}
}

func (d *GenericEventData) EventType() EventType { return d.Type }

func (d *GenericEventData) MarshalJSON() ([]byte, error) { return json.Marshal(d.Data) }

func (d *GenericEventData) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &d.Data) }
