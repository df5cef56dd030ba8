package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/property-intake/internal/common"
	"github.com/joseph-ayodele/property-intake/internal/pipeline"
)

// EventLog persists audit events to processing_events. It satisfies
// pipeline.EventSink; write failures are logged and dropped.
type EventLog struct {
	db *DB
}

func (d *DB) EventLog() *EventLog { return &EventLog{db: d} }

func (l *EventLog) LogEvent(ctx context.Context, ev pipeline.Event) {
	if err := l.Append(ctx, ev); err != nil {
		l.db.logger.WarnContext(ctx, "repository.event.dropped", "event_type", ev.Type, "error", err)
	}
}

// Append writes one event.
func (l *EventLog) Append(ctx context.Context, ev pipeline.Event) error {
	payload, err := encodeEventData(ev.Data)
	if err != nil {
		return fmt.Errorf("encode event data: %w", err)
	}
	at := ev.At
	if at.IsZero() {
		at = l.db.now()
	}
	q, args := l.db.builder().Insert(eventTable.name).
		Columns("id", "batch_id", "user_id", "document_id", "event_type", "status", "event_data", "created_at").
		Values(uuid.NewString(), nullable(ev.BatchID), nullable(ev.UserID), nullable(ev.DocumentID),
			ev.Type, nullable(ev.Status), payload, at.UTC()).
		Query()
	if _, err := exec(ctx, l.db.drv, q, args); err != nil {
		return fmt.Errorf("%w: insert event: %v", common.ErrDatabase, err)
	}
	return nil
}

// ForBatch returns a batch's events oldest first.
func (l *EventLog) ForBatch(ctx context.Context, batchID string) ([]pipeline.Event, error) {
	b := l.db.builder()
	q, args := b.Select("batch_id", "user_id", "document_id", "event_type", "status", "event_data", "created_at").
		From(b.Table(eventTable.name)).
		Where(entsql.EQ("batch_id", batchID)).
		OrderBy("created_at").
		Query()
	var rows entsql.Rows
	if err := l.db.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, fmt.Errorf("%w: list events: %v", common.ErrDatabase, err)
	}
	var out []pipeline.Event
	for rows.Next() {
		var (
			bid, uid, did, status, data sql.NullString
			typ                         string
			at                          any
		)
		if err := rows.Scan(&bid, &uid, &did, &typ, &status, &data, &at); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: scan event: %v", common.ErrDatabase, err)
		}
		ev := pipeline.Event{
			Type:       typ,
			BatchID:    bid.String,
			UserID:     uid.String,
			DocumentID: did.String,
			Status:     status.String,
			At:         toTime(at),
		}
		if data.Valid {
			m, err := decodeEventData(data.String)
			if err != nil {
				l.db.logger.Warn("repository.event.corrupt", "event_type", typ, "error", err)
			}
			ev.Data = m
		}
		out = append(out, ev)
	}
	return out, closeRows(&rows)
}

func encodeEventData(data map[string]any) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	s, err := structpb.NewStruct(data)
	if err != nil {
		return nil, err
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func decodeEventData(raw string) (map[string]any, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return s.AsMap(), nil
}

// toTime accepts what the postgres and sqlite drivers hand back for a
// timestamp column.
func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return time.Time{}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
