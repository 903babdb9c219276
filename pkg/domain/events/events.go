// Package events defines the run journal events emitted by the pipeline.
package events

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
}

// AggregateTypeRun is the aggregate every pipeline event belongs to.
const AggregateTypeRun = "run"

// Event types.
const (
	EventTypeRunStarted         = "run.started"
	EventTypeRunContextDegraded = "run.context_degraded"
	EventTypeStageStarted       = "stage.started"
	EventTypeStageFinished      = "stage.finished"
	EventTypeRunFinished        = "run.finished"
	EventTypeRunPersistFailed   = "run.persist_failed"
)

// Metadata keys shared by producers and consumers of run events.
const (
	MetaProjectID  = "project_id"
	MetaDocumentID = "document_id"
	MetaStage      = "stage"
	MetaStatus     = "status"
	MetaKind       = "kind"
	MetaMessage    = "message"
	MetaStartedAt  = "started_at"
	MetaFinishedAt = "finished_at"
	MetaDuration   = "duration_seconds"
)

// BaseEvent is the journal record. Events are chained by hash so tampering
// with the journal is detectable.
type BaseEvent struct {
	ID             string                 `json:"id"`
	Type           string                 `json:"type"`
	AggregateID_   string                 `json:"aggregate_id"`
	AggregateType_ string                 `json:"aggregate_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Actor          string                 `json:"actor"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	PrevHash       string                 `json:"prev_hash,omitempty"`
	Hash           string                 `json:"hash,omitempty"`
}

// NewRunEvent builds an event for the run with the given id.
func NewRunEvent(eventType, runID string, at time.Time, metadata map[string]interface{}) *BaseEvent {
	return &BaseEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		AggregateID_:   runID,
		AggregateType_: AggregateTypeRun,
		Timestamp:      at,
		Actor:          "orchestrator",
		Metadata:       metadata,
	}
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) AggregateID() string   { return e.AggregateID_ }
func (e BaseEvent) AggregateType() string { return e.AggregateType_ }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// String returns metadata[key] when it is a string.
func (e *BaseEvent) String(key string) string {
	if v, ok := e.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Float returns metadata[key] as a float64. Values decoded from JSON are
// float64 already; in-process events may carry other numeric types.
func (e *BaseEvent) Float(key string) float64 {
	switch v := e.Metadata[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// CalculateHash generates a deterministic SHA256 hash of the event.
func (e *BaseEvent) CalculateHash() string {
	h := sha256.New()
	h.Write([]byte(e.PrevHash))
	h.Write([]byte(e.ID))
	h.Write([]byte(e.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.AggregateID_))
	h.Write([]byte(e.Actor))
	h.Write([]byte(canonicalJSON(e.Metadata)))
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalJSON produces a deterministic JSON representation.
func canonicalJSON(m map[string]interface{}) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 256)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, _ := json.Marshal(k)
		valJSON, _ := json.Marshal(m[k])
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return string(ordered)
}
