package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-data-service/internal/config"
	"github.com/couchcryptid/covid-data-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes snapshot summaries to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one message describing a refreshed snapshot. Messages are
// keyed by the snapshot's latest data date so a compacted topic keeps one
// summary per day.
func (w *Writer) Publish(ctx context.Context, summary domain.SnapshotSummary) error {
	msg, err := serializeToMessage(summary)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot summary: %w", err)
	}
	w.logger.Debug("snapshot summary published", "topic", w.writer.Topic, "snapshot_id", summary.SnapshotID, "latest_date", summary.LatestDate)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SnapshotSummary into a Kafka message.
func serializeToMessage(summary domain.SnapshotSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.LatestDate),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "snapshot_id", Value: []byte(summary.SnapshotID)},
			{Key: "latest_date", Value: []byte(summary.LatestDate)},
			{Key: "loaded_at", Value: []byte(summary.LoadedAt.Format(time.RFC3339))},
			{Key: "case_rows", Value: []byte(strconv.Itoa(summary.CaseRows))},
		},
	}, nil
}
