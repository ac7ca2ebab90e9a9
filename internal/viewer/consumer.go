package viewer

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader used by Consume.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader builds a partition-0 reader starting an hour back, which works
// through a port-forward without a consumer group.
func NewReader(ctx context.Context, brokers []string, topic string) *kafka.Reader {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	if err := reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to seek, reading from the start")
	}
	return reader
}

type eventHeader struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	JobID     string `json:"jobId"`
	Timestamp int64  `json:"timestamp"`
}

// Decode turns a Kafka message into a viewer event.
func Decode(msg kafka.Message) (Event, error) {
	var hdr eventHeader
	if err := sonic.Unmarshal(msg.Value, &hdr); err != nil {
		return Event{}, err
	}
	return Event{
		Topic:     msg.Topic,
		EventType: hdr.EventType,
		SessionID: hdr.SessionID,
		JobID:     hdr.JobID,
		Timestamp: hdr.Timestamp,
		Payload:   append([]byte(nil), msg.Value...),
	}, nil
}

// Consume reads messages until ctx is done and publishes them to the hub.
// Malformed messages are logged and skipped.
func Consume(ctx context.Context, reader MessageReader, hub *Hub) {
	defer reader.Close()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Kafka read error")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		ev, err := Decode(msg)
		if err != nil {
			log.Warn().Err(err).Str("topic", msg.Topic).Msg("Skipping malformed event")
			continue
		}
		log.Debug().
			Str("topic", ev.Topic).
			Str("eventType", ev.EventType).
			Str("sessionId", ev.SessionID).
			Msg("Received event")
		hub.Publish(ev)
	}
}
