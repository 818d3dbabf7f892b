// Package kafka publishes loaded observations as JSON events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
	"github.com/couchcryptid/snowpack-etl/internal/pipeline"
)

// messageWriter is the subset of kafkago.Writer the Writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces one message per observation.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer  messageWriter
	topic   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, topic: topic, logger: logger, metrics: metrics}
}

// ObservationEvent is the message payload.
type ObservationEvent struct {
	Station     domain.Station     `json:"station"`
	Observation domain.Observation `json:"observation"`
	Edge        domain.Edge        `json:"edge"`
}

// LoadBatch publishes every row in a single WriteMessages call. Messages are
// keyed by observation key, so a station-month always lands on the same
// partition.
func (w *Writer) LoadBatch(ctx context.Context, rows []domain.Row) (pipeline.LoadResult, error) {
	if len(rows) == 0 {
		return pipeline.LoadResult{}, nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return pipeline.LoadResult{}, err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return pipeline.LoadResult{}, fmt.Errorf("publish to %s: %w", w.topic, err)
	}

	w.metrics.EventsPublished.Add(float64(len(msgs)))
	w.logger.Debug("observation events published", "topic", w.topic, "count", len(msgs))
	return pipeline.LoadResult{EventsPublished: len(msgs)}, nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a row into a Kafka message.
func serializeToMessage(row domain.Row) (kafkago.Message, error) {
	data, err := json.Marshal(ObservationEvent{
		Station:     row.Station,
		Observation: row.Observation,
		Edge:        row.Edge(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation %s: %w", row.Observation.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(row.Observation.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station_id", Value: []byte(row.Station.StationID)},
			{Key: "observation_date", Value: []byte(row.Observation.Date.Format(domain.DateLayout))},
			{Key: "loaded_at", Value: []byte(row.Observation.LoadedAt.Format(time.RFC3339))},
		},
	}, nil
}
