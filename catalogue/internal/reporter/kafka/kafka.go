package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"

	"github.com/salim16/microservices-kaushik/catalogue/pkg/model"
)

// Reporter publishes omitted catalogue items to a Kafka topic.
type Reporter struct {
	producer *kafka.Producer
	topic    string
	logger   *zap.Logger
	done     chan struct{}
}

// New creates a Kafka omission reporter.
func New(addr string, topic string, logger *zap.Logger) (*Reporter, error) {
	return newReporter(&kafka.ConfigMap{"bootstrap.servers": addr}, topic, logger)
}

func newReporter(cfg *kafka.ConfigMap, topic string, logger *zap.Logger) (*Reporter, error) {
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	r := &Reporter{producer: producer, topic: topic, logger: logger, done: make(chan struct{})}
	go r.watchDeliveries()
	return r, nil
}

// ReportOmission enqueues the event for delivery. Delivery is asynchronous
// and failures are only logged.
func (r *Reporter) ReportOmission(_ context.Context, e model.OmissionEvent) {
	value, err := encodeEvent(e)
	if err != nil {
		r.logger.Error("Failed to encode omission event", zap.Error(err))
		return
	}
	if err := r.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &r.topic, Partition: kafka.PartitionAny},
		Key:            []byte(e.UserID),
		Value:          value,
	}, nil); err != nil {
		r.logger.Error("Failed to produce omission event", zap.String("movieId", e.MovieID), zap.Error(err))
	}
}

// Close waits up to timeout for queued events and shuts the producer down.
func (r *Reporter) Close(timeout time.Duration) {
	if left := r.producer.Flush(int(timeout.Milliseconds())); left > 0 {
		r.logger.Warn("Omission events left undelivered", zap.Int("count", left))
	}
	r.producer.Close()
	<-r.done
}

func (r *Reporter) watchDeliveries() {
	defer close(r.done)
	for ev := range r.producer.Events() {
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			r.logger.Warn("Omission event delivery failed", zap.Error(m.TopicPartition.Error))
		}
	}
}

func encodeEvent(e model.OmissionEvent) ([]byte, error) {
	return json.Marshal(e)
}
