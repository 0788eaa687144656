// Package events provides event publishing functionality.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/observability/metrics"
)

// Publisher publishes conversation events to separate Kafka topics.
type Publisher struct {
	writerSegments  *kafka.Writer
	writerCompleted *kafka.Writer
	principal       string
	topicSegments   string
	topicCompleted  string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicSegments  string
	TopicCompleted string
	Principal      string
	Enabled        bool
}

// New creates a Kafka event publisher with separate topics for flushed
// segments and completed conversations. With Kafka disabled or no brokers
// configured, events are logged and dropped.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicSegments:  cfg.TopicSegments,
			topicCompleted: cfg.TopicCompleted,
			enabled:        false,
			metrics:        m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	writerSegments := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicSegments,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	writerCompleted := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.TopicCompleted,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicSegments", cfg.TopicSegments).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerSegments:  writerSegments,
		writerCompleted: writerCompleted,
		principal:       cfg.Principal,
		topicSegments:   cfg.TopicSegments,
		topicCompleted:  cfg.TopicCompleted,
		enabled:         true,
		metrics:         m,
	}
}

// PublishSegment publishes a flushed segment event, keyed by conversation so
// a conversation's segments stay ordered within a partition.
func (p *Publisher) PublishSegment(ctx context.Context, event models.SegmentEvent) error {
	event.EventType = "conversation.segment"
	return p.publish(ctx, p.writerSegments, p.topicSegments, "segment", event.ConversationID, event)
}

// PublishCompleted publishes the final conversation event.
func (p *Publisher) PublishCompleted(ctx context.Context, event models.CompletedEvent) error {
	event.EventType = "conversation.completed"
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, "completed", event.ConversationID, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerSegments != nil {
		if e := p.writerSegments.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing segments writer")
			err = e
		}
	}
	if p.writerCompleted != nil {
		if e := p.writerCompleted.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing completed writer")
			err = e
		}
	}
	return err
}
