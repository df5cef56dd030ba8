package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventBatchStarted         = "BATCH_PROCESSING_STARTED"
	EventBatchCompleted       = "BATCH_PROCESSING_COMPLETED"
	EventBatchFailed          = "BATCH_PROCESSING_FAILED"
	EventBatchStatusUpdated   = "BATCH_STATUS_UPDATED"
	EventDocumentStarted      = "DOCUMENT_PROCESSING_STARTED"
	EventDocumentProcessed    = "DOCUMENT_PROCESSED"
	EventDocumentFailed       = "DOCUMENT_PROCESSING_FAILED"
	EventConsolidationStarted = "DATA_CONSOLIDATION_STARTED"
	EventConsolidated         = "DATA_CONSOLIDATED"
	EventPropertyCreated      = "PROPERTY_CREATED"
	EventPropertyUpdated      = "PROPERTY_UPDATED"
)

// Event is one audit log entry.
type Event struct {
	Type       string         `json:"event_type"`
	BatchID    string         `json:"batch_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	DocumentID string         `json:"document_id,omitempty"`
	Status     string         `json:"status,omitempty"`
	Data       map[string]any `json:"event_data,omitempty"`
	At         time.Time      `json:"created_at"`
}

// EventSink receives audit events. LogEvent must not block the pipeline
// on sink failures; implementations log and drop.
type EventSink interface {
	LogEvent(ctx context.Context, ev Event)
}

// SlogSink writes events to a structured logger.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) LogEvent(ctx context.Context, ev Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "pipeline.event",
		"event_type", ev.Type,
		"batch_id", ev.BatchID,
		"user_id", ev.UserID,
		"document_id", ev.DocumentID,
		"status", ev.Status,
		"event_data", ev.Data,
	)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

func (m MultiSink) LogEvent(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.LogEvent(ctx, ev)
		}
	}
}

// RecordingSink keeps events in memory, for tests and the CLI summary.
type RecordingSink struct {
	Events []Event
}

func (r *RecordingSink) LogEvent(_ context.Context, ev Event) {
	r.Events = append(r.Events, ev)
}

// Types returns the recorded event types in order.
func (r *RecordingSink) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
