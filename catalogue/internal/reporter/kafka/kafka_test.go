package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
)

func TestEncodeEvent(t *testing.T) {
	b, err := encodeEvent(model.OmissionEvent{
		UserID:     "u1",
		MovieID:    "m2",
		Reason:     "timeout",
		OccurredAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","movieId":"m2","reason":"timeout","occurredAt":"2024-05-01T12:00:00Z"}`, string(b))
}

func TestReportOmissionWithoutBroker(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r, err := newReporter(&kafka.ConfigMap{
		"bootstrap.servers":  "127.0.0.1:1",
		"message.timeout.ms": 200,
	}, "catalogue-omissions", zap.New(core))
	require.NoError(t, err)

	r.ReportOmission(context.Background(), model.OmissionEvent{
		UserID: "u1", MovieID: "m2", Reason: "timeout", OccurredAt: time.Now(),
	})

	closed := make(chan struct{})
	go func() {
		r.Close(5 * time.Second)
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}

	assert.Zero(t, logs.FilterMessage("Failed to produce omission event").Len())
	assert.Equal(t, 1, logs.FilterMessage("Omission event delivery failed").Len())
}
