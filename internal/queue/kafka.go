package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// KafkaEvents publishes the job event stream to a Kafka topic as JSON,
// keyed by job id so all events of one job land on one partition.
type KafkaEvents struct {
	w     *kafka.Writer
	queue string
	topic string
	log   *zap.Logger
}

var _ Events = (*KafkaEvents)(nil)

func NewKafkaEvents(brokers []string, topic, queueName string, log *zap.Logger) *KafkaEvents {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaEvents{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		queue: queueName,
		topic: topic,
		log:   log.With(zap.String("component", "queue.events"), zap.String("topic", topic)),
	}
}

type jobEvent struct {
	Queue      string    `json:"queue"`
	Type       string    `json:"type"`
	Job        *Job      `json:"job"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	At         time.Time `json:"at"`
}

func (e *KafkaEvents) publish(ctx context.Context, ev jobEvent) {
	value, err := json.Marshal(ev)
	if err != nil {
		e.log.Error("event marshal failed", zap.Error(err))
		return
	}

	tr := otel.Tracer("queue.events")
	ctx, span := tr.Start(ctx, "kafka.produce "+e.topic, trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(e.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	msg := kafka.Message{Key: []byte(ev.Job.ID), Value: value}
	if err := e.w.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		e.log.Warn("event publish failed",
			zap.String("type", ev.Type), zap.String("job", ev.Job.ID), zap.Error(err))
	}
}

func (e *KafkaEvents) JobEnqueued(ctx context.Context, j *Job) {
	e.publish(ctx, jobEvent{Queue: e.queue, Type: "enqueued", Job: j, At: time.Now().UTC()})
}

func (e *KafkaEvents) JobCompleted(ctx context.Context, j *Job, took time.Duration) {
	e.publish(ctx, jobEvent{
		Queue: e.queue, Type: "completed", Job: j,
		DurationMS: took.Milliseconds(), At: time.Now().UTC(),
	})
}

func (e *KafkaEvents) JobFailed(ctx context.Context, j *Job, jobErr error) {
	ev := jobEvent{Queue: e.queue, Type: "failed", Job: j, At: time.Now().UTC()}
	if jobErr != nil {
		ev.Error = jobErr.Error()
	}
	e.publish(ctx, ev)
}

func (e *KafkaEvents) Close() error { return e.w.Close() }
