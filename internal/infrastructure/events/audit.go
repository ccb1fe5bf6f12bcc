package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/reservation"
	"github.com/xiebiao/library/pkg/mq"
	"github.com/xiebiao/library/pkg/tracing"
)

// AuditRoutingKeys binds the audit queue to every reservation topic.
var AuditRoutingKeys = []string{"reservation.#"}

// NewAuditHandler returns a consumer handler that writes every
// notification to log. Undecodable bodies are rejected.
func NewAuditHandler(log *zap.Logger) mq.Handler {
	return func(ctx context.Context, d mq.Delivery) error {
		var note reservation.Notification
		if err := json.Unmarshal(d.Body, &note); err != nil {
			return fmt.Errorf("decode %s: %w", d.RoutingKey, err)
		}

		log.Info("reservation event",
			zap.String("topic", note.Topic),
			zap.Uint("reservation_id", note.ReservationID),
			zap.Uint("user_id", note.UserID),
			zap.Uint("book_id", note.BookID),
			zap.String("status", note.Status),
			zap.Time("occurred_at", note.OccurredAt),
			zap.String("trace_id", tracing.ExtractTraceID(ctx)),
		)
		return nil
	}
}
