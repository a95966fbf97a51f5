package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdesk/internal/registration/models"
)

type fakeProducer struct {
	mu      sync.Mutex
	records []producedRecord
	err     error
}

type producedRecord struct {
	topic string
	key   string
	value []byte
}

func (f *fakeProducer) ProduceAsync(_ context.Context, topic string, key, value []byte, callback func(error)) {
	f.mu.Lock()
	f.records = append(f.records, producedRecord{topic: topic, key: string(key), value: value})
	f.mu.Unlock()
	if callback != nil {
		callback(f.err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRequestAdmittedPublishesEvent(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewPublisher(producer, "regdesk.registrations", discardLogger())

	pub.RequestAdmitted(context.Background(), models.RegistrationRequest{
		ID:       7,
		Username: "ada",
		Email:    "ada@example.com",
	})

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "regdesk.registrations", rec.topic)
	assert.Equal(t, "7", rec.key)

	var event Event
	require.NoError(t, json.Unmarshal(rec.value, &event))
	assert.Equal(t, TypeRequestAdmitted, event.Type)
	assert.Equal(t, int64(7), event.RequestID)
	assert.Equal(t, "ada", event.Username)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestRequestResolvedMapsActionToType(t *testing.T) {
	reviewedAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		action models.Action
		want   string
	}{
		{models.ActionApproved, TypeRequestApproved},
		{models.ActionRejected, TypeRequestRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			producer := &fakeProducer{}
			pub := NewPublisher(producer, "regdesk.registrations", discardLogger())

			pub.RequestResolved(context.Background(), models.AuditEntry{
				RequestID:   3,
				Username:    "ada",
				Email:       "ada@example.com",
				Action:      tt.action,
				PerformedBy: "root",
				ReviewedAt:  reviewedAt,
			})

			require.Len(t, producer.records, 1)
			var event Event
			require.NoError(t, json.Unmarshal(producer.records[0].value, &event))
			assert.Equal(t, tt.want, event.Type)
			assert.Equal(t, "root", event.PerformedBy)
			assert.True(t, event.OccurredAt.Equal(reviewedAt))
		})
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	producer := &fakeProducer{err: errors.New("broker unavailable")}
	pub := NewPublisher(producer, "regdesk.registrations", discardLogger())

	assert.NotPanics(t, func() {
		pub.RequestAdmitted(context.Background(), models.RegistrationRequest{ID: 1, Username: "ada"})
	})
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *Publisher

	assert.NotPanics(t, func() {
		pub.RequestAdmitted(context.Background(), models.RegistrationRequest{ID: 1})
		pub.RequestResolved(context.Background(), models.AuditEntry{RequestID: 1})
	})
}

func TestNewPublisherWithoutProducerReturnsNil(t *testing.T) {
	assert.Nil(t, NewPublisher(nil, "topic", discardLogger()))
}
