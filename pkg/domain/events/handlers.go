package events

import (
	"context"
	"log/slog"
)

// JournalHandler appends every event it receives to store.
func JournalHandler(store EventStore) EventHandlerFunc {
	return func(_ context.Context, event *BaseEvent) error {
		return store.Append(event)
	}
}

// LoggingHandler writes run events to a structured logger.
type LoggingHandler struct {
	logger *slog.Logger
}

// NewLoggingHandler creates a LoggingHandler. A nil logger means slog.Default().
func NewLoggingHandler(logger *slog.Logger) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger}
}

// Handle logs the event. Failures and degraded runs are logged at warn level.
func (h *LoggingHandler) Handle(ctx context.Context, event *BaseEvent) error {
	attrs := []any{"run_id", event.AggregateID_, "event_type", event.Type}
	if stage := event.String(MetaStage); stage != "" {
		attrs = append(attrs, "stage", stage)
	}
	if status := event.String(MetaStatus); status != "" {
		attrs = append(attrs, "status", status)
	}
	if msg := event.String(MetaMessage); msg != "" {
		attrs = append(attrs, "error", msg)
	}

	level := slog.LevelDebug
	switch event.Type {
	case EventTypeRunStarted, EventTypeRunFinished:
		level = slog.LevelInfo
	case EventTypeRunContextDegraded, EventTypeRunPersistFailed:
		level = slog.LevelWarn
	case EventTypeStageFinished:
		if event.String(MetaStatus) == "failed" {
			level = slog.LevelWarn
		}
	}
	h.logger.Log(ctx, level, "pipeline event", attrs...)
	return nil
}
