// Package sse streams run events to HTTP clients as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
)

// Message is the data line of one streamed event.
type Message struct {
	Type      string    `json:"type"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage,omitempty"`
	Status    string    `json:"status,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SSEHandler fans dispatcher events out to connected clients.
type SSEHandler struct {
	mu      sync.RWMutex
	clients map[chan *events.BaseEvent]struct{}
}

// NewSSEHandler creates a handler with no clients.
func NewSSEHandler() *SSEHandler {
	return &SSEHandler{clients: make(map[chan *events.BaseEvent]struct{})}
}

// Register subscribes the handler to every event of d.
func (h *SSEHandler) Register(d *events.EventDispatcher) {
	d.RegisterWildcard("sse", h.Handle)
}

// Handle forwards event to every client. Slow clients drop events.
func (h *SSEHandler) Handle(_ context.Context, event *events.BaseEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.clients {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *SSEHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP streams events until the client disconnects. The query
// parameters types (comma separated) and run narrow the stream.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	typeFilter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			typeFilter[strings.TrimSpace(t)] = true
		}
	}
	runFilter := r.URL.Query().Get("run")

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := make(chan *events.BaseEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-ch:
			if len(typeFilter) > 0 && !typeFilter[event.Type] {
				continue
			}
			if runFilter != "" && event.AggregateID() != runFilter {
				continue
			}
			data, err := json.Marshal(messageFor(event))
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
			flusher.Flush()
		}
	}
}

func messageFor(e *events.BaseEvent) Message {
	return Message{
		Type:      e.Type,
		RunID:     e.AggregateID(),
		Stage:     e.String(events.MetaStage),
		Status:    e.String(events.MetaStatus),
		Kind:      e.String(events.MetaKind),
		Message:   e.String(events.MetaMessage),
		Timestamp: e.Timestamp,
	}
}
