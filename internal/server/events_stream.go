package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/bojops/internal/events"
)

const (
	streamBuffer      = 100
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
)

// EventsStreamHandler streams bus events to clients over Server-Sent Events
// or WebSocket. Both accept ?types=A,B to filter by event type.
type EventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus: bus,
		log: log.With().Str("component", "events_stream").Logger(),
	}
}

func parseTypes(r *http.Request) map[events.EventType]bool {
	filter := r.URL.Query().Get("types")
	if filter == "" {
		return nil
	}
	allowed := make(map[events.EventType]bool)
	for _, t := range strings.Split(filter, ",") {
		allowed[events.EventType(strings.TrimSpace(t))] = true
	}
	return allowed
}

type streamMessage struct {
	Type      string      `json:"type"`
	Module    string      `json:"module,omitempty"`
	Timestamp string      `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func eventMessage(ev events.EventWithData) streamMessage {
	return streamMessage{
		Type:      string(ev.Type),
		Module:    ev.Module,
		Timestamp: ev.Timestamp.Format(time.RFC3339),
		Data:      ev.Data,
	}
}

func controlMessage(typ, message string) streamMessage {
	return streamMessage{Type: typ, Timestamp: time.Now().Format(time.RFC3339), Message: message}
}

// ServeSSE handles GET /api/events/stream requests.
func (h *EventsStreamHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	allowed := parseTypes(r)
	ch, unsubscribe := h.bus.Subscribe(streamBuffer)
	defer unsubscribe()

	h.log.Info().Str("types_filter", r.URL.Query().Get("types")).Msg("Client connected to event stream")

	send := func(msg streamMessage) {
		data, err := json.Marshal(msg)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to marshal event")
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(controlMessage("connected", "Connected to event stream"))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if allowed != nil && !allowed[ev.Type] {
				continue
			}
			send(eventMessage(ev))
		case <-heartbeat.C:
			send(controlMessage("heartbeat", ""))
		}
	}
}

// ServeWebSocket handles GET /api/events/ws requests. Messages from the
// client are ignored.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	allowed := parseTypes(r)
	ch, unsubscribe := h.bus.Subscribe(streamBuffer)
	defer unsubscribe()

	// CloseRead discards client frames and cancels ctx once the client goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Str("types_filter", r.URL.Query().Get("types")).Msg("WebSocket client connected")

	write := func(msg streamMessage) error {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		return wsjson.Write(wctx, conn, msg)
	}

	if err := write(controlMessage("connected", "Connected to event stream")); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("WebSocket client disconnected")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if allowed != nil && !allowed[ev.Type] {
				continue
			}
			if err := write(eventMessage(ev)); err != nil {
				h.log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-heartbeat.C:
			if err := write(controlMessage("heartbeat", "")); err != nil {
				return
			}
		}
	}
}
