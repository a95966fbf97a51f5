// Package events publishes registration lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"regdesk/internal/registration/models"
)

// Event types emitted on the registration topic.
const (
	TypeRequestAdmitted = "request_admitted"
	TypeRequestApproved = "request_approved"
	TypeRequestRejected = "request_rejected"
)

// Producer is the transport the publisher writes through.
type Producer interface {
	ProduceAsync(ctx context.Context, topic string, key, value []byte, callback func(error))
}

// Event is the wire payload. Keyed by request id so per-request ordering is
// preserved within a partition.
type Event struct {
	Type        string    `json:"type"`
	RequestID   int64     `json:"request_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	PerformedBy string    `json:"performed_by,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits workflow events. A nil *Publisher is valid and emits
// nothing; publish failures are logged, never surfaced.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

// NewPublisher creates an event publisher. Returns nil when no producer is
// configured.
func NewPublisher(producer Producer, topic string, logger *slog.Logger) *Publisher {
	if producer == nil {
		return nil
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// RequestAdmitted emits an event for a newly admitted request.
func (p *Publisher) RequestAdmitted(ctx context.Context, req models.RegistrationRequest) {
	p.publish(ctx, Event{
		Type:       TypeRequestAdmitted,
		RequestID:  req.ID,
		Username:   req.Username,
		Email:      req.Email,
		OccurredAt: time.Now().UTC(),
	})
}

// RequestResolved emits an approval or rejection event from an audit entry.
func (p *Publisher) RequestResolved(ctx context.Context, entry models.AuditEntry) {
	eventType := TypeRequestApproved
	if entry.Action == models.ActionRejected {
		eventType = TypeRequestRejected
	}
	p.publish(ctx, Event{
		Type:        eventType,
		RequestID:   entry.RequestID,
		Username:    entry.Username,
		Email:       entry.Email,
		PerformedBy: entry.PerformedBy,
		OccurredAt:  entry.ReviewedAt,
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal registration event", "type", event.Type, "error", err)
		return
	}

	key := []byte(strconv.FormatInt(event.RequestID, 10))
	p.producer.ProduceAsync(ctx, p.topic, key, value, func(err error) {
		if err != nil {
			p.logger.Error("publish registration event",
				"type", event.Type,
				"request_id", event.RequestID,
				"error", err,
			)
		}
	})
}
