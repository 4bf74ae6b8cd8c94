// Package intake consumes usage events from a Kafka topic and feeds them
// to the tracker. Like the rest of the ingestion path it is best-effort:
// malformed payloads are logged and skipped, never redelivered as errors.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/ClawPulse/ClawPulse/internal/event"
)

// Config holds Kafka intake settings.
type Config struct {
	Enabled       bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers       string `json:"brokers" envconfig:"BROKERS"`
	Topic         string `json:"topic" envconfig:"TOPIC"`
	ConsumerGroup string `json:"consumerGroup" envconfig:"CONSUMER_GROUP"`
}

// DefaultConfig returns intake defaults; disabled until configured.
func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		Brokers:       "localhost:9092",
		Topic:         "clawpulse.events",
		ConsumerGroup: "clawpulse",
	}
}

// Tracker is the ingest surface the intake writes to.
type Tracker interface {
	Track(event.Input)
}

// Kafka reads event payloads from one topic via a consumer group.
type Kafka struct {
	cfg     Config
	tracker Tracker
	reader  *kafka.Reader
}

// NewKafka creates the intake. The reader connects lazily on Run.
func NewKafka(cfg Config, tracker Tracker) *Kafka {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  strings.Split(cfg.Brokers, ","),
		Topic:    cfg.Topic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Kafka{cfg: cfg, tracker: tracker, reader: reader}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (k *Kafka) Run(ctx context.Context) error {
	slog.Info("Kafka intake started", "topic", k.cfg.Topic, "group", k.cfg.ConsumerGroup)
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read from %s: %w", k.cfg.Topic, err)
		}
		in, err := Decode(msg.Value)
		if err != nil {
			slog.Warn("Skipping malformed intake payload",
				"topic", k.cfg.Topic, "offset", msg.Offset, "error", err)
			continue
		}
		k.tracker.Track(in)
	}
}

// Close shuts the underlying reader down.
func (k *Kafka) Close() error {
	return k.reader.Close()
}

// Decode parses one JSON event payload into a typed input.
func Decode(b []byte) (event.Input, error) {
	var payload event.Payload
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("decode event payload: %w", err)
	}
	return payload.Input()
}
