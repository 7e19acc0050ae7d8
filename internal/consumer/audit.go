package consumer

import (
	"context"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"example.com/workouts/internal/persistence/postgres"
)

// AuditHandler appends consumed events to workout_event_log. Redelivered records are ignored.
type AuditHandler struct {
	db postgres.Querier
}

// NewAuditHandler constructs a handler writing through db.
func NewAuditHandler(db postgres.Querier) *AuditHandler {
	return &AuditHandler{db: db}
}

// Handle implements Handler.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	const stmt = `INSERT INTO workout_event_log (event_type, workout_id, topic, partition, record_offset, payload, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (topic, partition, record_offset) DO NOTHING`

	tag, err := h.db.Exec(ctx, stmt,
		msg.EventType,
		msg.WorkoutID,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		msg.Timestamp,
	)
	if err != nil {
		return jerrors.Wrap(err, "insert event log", j.KV("event_type", msg.EventType), j.KV("offset", msg.Offset))
	}
	recordAuditWrite(msg.EventType, tag.RowsAffected() > 0)
	return nil
}
