package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes(t *testing.T) {
	tests := []struct {
		data EventData
		want EventType
	}{
		{&RunStartedData{}, RunStarted},
		{&UnitSkippedData{}, UnitSkipped},
		{&UnitCompletedData{}, UnitCompleted},
		{&RunCompletedData{}, RunCompleted},
		{&RunFailedData{}, RunFailed},
		{&ReportRenderedData{}, ReportRendered},
		{&SystemStatusData{}, SystemStatusChanged},
		{&ErrorEventData{}, ErrorOccurred},
		{&GenericEventData{Type: "CUSTOM"}, "CUSTOM"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.data.EventType())
		})
	}
}

func TestEventWithDataRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		data EventData
	}{
		{"run started", &RunStartedData{RunID: "r1", Trigger: "schedule", ReleaseMonths: 30, DailyDates: 45}},
		{"unit skipped", &UnitSkippedData{RunID: "r1", Unit: "daily 2024-03-02", Reason: "resource unavailable"}},
		{"unit completed", &UnitCompletedData{RunID: "r1", Unit: "release 2024-01", Operations: 20, Current: 3, Total: 75}},
		{"run completed", &RunCompletedData{RunID: "r1", Operations: 700, Replaced: 12, Skipped: 9, Saved: true, Duration: 12.5}},
		{"run failed", &RunFailedData{RunID: "r1", Unit: "daily 2024-03-04", Error: "no rule matched", Fatal: true}},
		{"report rendered", &ReportRenderedData{Path: "/data/BOJ_plot.pdf", Pages: 2, Start: "2021-04-01", End: "2024-03-01"}},
		{"system status", &SystemStatusData{CPUPercent: 12.5, MemoryPercent: 40, Operations: 700, LastDate: "2024-03-01"}},
		{"error", &ErrorEventData{Error: "boom", Context: map[string]interface{}{"unit": "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &EventWithData{Type: tt.data.EventType(), Timestamp: ts, Module: "work", Data: tt.data}

			raw, err := json.Marshal(event)
			require.NoError(t, err)

			var decoded EventWithData
			require.NoError(t, json.Unmarshal(raw, &decoded))
			assert.Equal(t, event.Type, decoded.Type)
			assert.Equal(t, "work", decoded.Module)
			assert.True(t, ts.Equal(decoded.Timestamp))
			assert.Equal(t, tt.data, decoded.Data)
		})
	}
}

func TestEventWithDataUnknownType(t *testing.T) {
	raw := `{"type":"SOMETHING_NEW","timestamp":"2024-03-01T00:00:00Z","module":"x","data":{"a":1}}`

	var decoded EventWithData
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))

	generic, ok := decoded.Data.(*GenericEventData)
	require.True(t, ok)
	assert.Equal(t, EventType("SOMETHING_NEW"), generic.EventType())
	assert.Equal(t, float64(1), generic.Data["a"])
}

func TestEventWithDataNullData(t *testing.T) {
	var decoded EventWithData
	require.NoError(t, json.Unmarshal([]byte(`{"type":"RUN_STARTED","data":null}`), &decoded))
	assert.Nil(t, decoded.Data)
}

func TestBusDelivers(t *testing.T) {
	bus := NewBus()
	ch1, unsub1 := bus.Subscribe(4)
	ch2, unsub2 := bus.Subscribe(4)
	defer unsub1()
	defer unsub2()

	bus.Emit(EventWithData{Type: RunStarted})

	assert.Equal(t, RunStarted, (<-ch1).Type)
	assert.Equal(t, RunStarted, (<-ch2).Type)
	assert.Equal(t, 2, bus.Subscribers())
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(1)
	defer unsub()

	bus.Emit(EventWithData{Type: RunStarted})
	bus.Emit(EventWithData{Type: RunCompleted})

	assert.Equal(t, RunStarted, (<-ch).Type)
	assert.Equal(t, int64(1), bus.Dropped())
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(1)

	unsub()
	unsub()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers())

	// Emitting after unsubscribe must not panic on the closed channel
	bus.Emit(EventWithData{Type: RunStarted})
}

func TestBusConcurrentEmit(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(100)
	defer unsub()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				bus.Emit(EventWithData{Type: UnitCompleted})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ch, 100)
}

func TestManagerEmitTyped(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(2)
	defer unsub()

	manager := NewManager(bus, zerolog.New(nil).Level(zerolog.Disabled))
	manager.EmitTyped("work", &UnitSkippedData{RunID: "r1", Unit: "daily 2024-03-02"})
	manager.EmitError("server", errors.New("boom"), nil)

	skipped := <-ch
	assert.Equal(t, UnitSkipped, skipped.Type)
	assert.Equal(t, "work", skipped.Module)
	assert.False(t, skipped.Timestamp.IsZero())

	failed := <-ch
	assert.Equal(t, ErrorOccurred, failed.Type)
	assert.Equal(t, "boom", failed.Data.(*ErrorEventData).Error)
}
