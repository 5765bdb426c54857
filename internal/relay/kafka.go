package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/KafClaw/thoughthub/internal/config"
	"github.com/KafClaw/thoughthub/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors events to one topic per workspace.
type KafkaPublisher struct {
	writer messageWriter
	prefix string
}

// NewKafkaPublisher creates a publisher writing to cfg.Brokers.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	var brokers []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka relay: no brokers configured")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, prefix: cfg.TopicPrefix}, nil
}

// Topic returns the topic events of a workspace are written to.
func Topic(prefix, workspaceID string) string {
	return fmt.Sprintf("%s.%s.events", prefix, workspaceID)
}

func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish writes evt keyed by workspace so per-workspace order is kept.
func (p *KafkaPublisher) Publish(ctx context.Context, evt model.HubEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Topic: Topic(p.prefix, evt.WorkspaceID),
		Key:   []byte(evt.WorkspaceID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "event_id", Value: []byte(evt.ID)},
		},
		Time: evt.Timestamp,
	}
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, msg)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
