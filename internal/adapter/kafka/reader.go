package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/config"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/domain"
)

// Reader consumes raw frames from a Kafka topic as part of a consumer group.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a Kafka consumer for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch fetches up to batchSize messages, returning early once the
// flush interval elapses with at least one message in hand. Offsets are not
// committed here; each RawEvent carries a Commit callback the pipeline
// invokes after a successful load.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	batch := make([]domain.RawEvent, 0, batchSize)
	deadline := time.Now().Add(r.flushInterval)

	for len(batch) < batchSize {
		fetchCtx, cancel := context.WithDeadline(ctx, deadline)
		msg, err := r.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			// The flush deadline expiring is the normal end of a partial
			// batch; only surface errors on an empty batch.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			if len(batch) > 0 {
				break
			}
			return nil, err
		}
		batch = append(batch, r.mapMessageToRawEvent(msg))
	}
	return batch, nil
}

func (r *Reader) mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	raw := mapMessageToRawEvent(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawEvent converts a Kafka message into the domain's raw event.
func mapMessageToRawEvent(msg kafkago.Message) domain.RawEvent {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawEvent{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
