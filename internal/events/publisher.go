// Package events provides event publishing functionality.
package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"transcript-search-service/internal/models"
	"transcript-search-service/internal/observability/metrics"
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes session and correction events to separate Kafka topics.
type Publisher struct {
	writerSession   messageWriter
	writerBatch     messageWriter
	writerCompleted messageWriter
	principal       string
	topicSession    string
	topicBatch      string
	topicCompleted  string
	enabled         bool
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicSession   string
	TopicBatch     string
	TopicCompleted string
	Principal      string
	Enabled        bool
}

// New creates a new Kafka event publisher with one writer per topic.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	// Handle nil config case
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	cfg = withDefaultTopics(cfg)

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:      cfg.Principal,
			topicSession:   cfg.TopicSession,
			topicBatch:     cfg.TopicBatch,
			topicCompleted: cfg.TopicCompleted,
			enabled:        false,
			metrics:        m,
		}
	}

	// Create a custom dialer with longer timeouts for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicSession", cfg.TopicSession).
		Str("topicBatch", cfg.TopicBatch).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerSession:   newWriter(cfg.TopicSession),
		writerBatch:     newWriter(cfg.TopicBatch),
		writerCompleted: newWriter(cfg.TopicCompleted),
		principal:       cfg.Principal,
		topicSession:    cfg.TopicSession,
		topicBatch:      cfg.TopicBatch,
		topicCompleted:  cfg.TopicCompleted,
		enabled:         true,
		metrics:         m,
	}
}

func withDefaultTopics(cfg *Config) *Config {
	out := *cfg
	if out.TopicSession == "" {
		out.TopicSession = models.EventSessionTranscribed
	}
	if out.TopicBatch == "" {
		out.TopicBatch = models.EventCorrectionBatch
	}
	if out.TopicCompleted == "" {
		out.TopicCompleted = models.EventCorrectionCompleted
	}
	return &out
}

// PublishTranscribed publishes a session.transcribed event keyed by session.
func (p *Publisher) PublishTranscribed(ctx context.Context, event models.SessionTranscribed) error {
	return p.publish(ctx, p.writerSession, p.topicSession, models.EventSessionTranscribed, event.SessionID, event)
}

// PublishCorrectionBatch publishes a correction.batch event keyed by session.
func (p *Publisher) PublishCorrectionBatch(ctx context.Context, event models.CorrectionBatch) error {
	return p.publish(ctx, p.writerBatch, p.topicBatch, models.EventCorrectionBatch, event.SessionID, event)
}

// PublishCorrectionCompleted publishes a correction.completed event keyed by session.
func (p *Publisher) PublishCorrectionCompleted(ctx context.Context, event models.CorrectionCompleted) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, models.EventCorrectionCompleted, event.SessionID, event)
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := sonic.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	// Log the event
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

// Close closes all Kafka writers.
func (p *Publisher) Close() error {
	var err error
	for name, w := range map[string]messageWriter{
		"session":   p.writerSession,
		"batch":     p.writerBatch,
		"completed": p.writerCompleted,
	} {
		if w == nil {
			continue
		}
		if e := w.Close(); e != nil {
			log.Error().Err(e).Str("writer", name).Msg("Error closing Kafka writer")
			err = e
		}
	}
	return err
}
