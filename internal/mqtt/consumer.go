package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/screener/screener-go/internal/events"
	"github.com/screener/screener-go/internal/logging"
)

// Consumer forwards bus events to MQTT topics as JSON payloads.
type Consumer struct {
	client      Client
	topicPrefix string
	log         *slog.Logger
}

// NewConsumer creates an event consumer that publishes to the given client.
func NewConsumer(client Client, topicPrefix string) *Consumer {
	return &Consumer{
		client:      client,
		topicPrefix: topicPrefix,
		log:         logging.ForService("mqtt"),
	}
}

// Name identifies the consumer on the event bus.
func (c *Consumer) Name() string { return "mqtt" }

// ProcessEvent serializes the event and publishes it to its topic.
func (c *Consumer) ProcessEvent(ev events.Event) error {
	var topic string
	var payload any

	switch e := ev.(type) {
	case events.SourceChanged:
		topic = c.topicPrefix + "/cut"
		payload = map[string]any{
			"previous_index": e.PreviousIndex,
			"new_index":      e.NewIndex,
			"reason":         e.Reason,
			"timestamp":      e.At.Format(time.RFC3339Nano),
		}
	case events.SwingDetected:
		topic = c.topicPrefix + "/swing"
		payload = map[string]any{
			"score":     e.Score,
			"ema":       e.EMA,
			"timestamp": e.At.Format(time.RFC3339Nano),
		}
	case events.SequenceStarted:
		topic = c.topicPrefix + "/sequence/started"
		payload = map[string]any{
			"number":     e.Number,
			"session_id": e.SessionID,
			"method":     e.Method,
			"timestamp":  e.At.Format(time.RFC3339Nano),
		}
	case events.SequenceCompleted:
		topic = c.topicPrefix + "/sequence/completed"
		payload = map[string]any{
			"number":     e.Number,
			"session_id": e.SessionID,
			"reason":     e.Reason,
			"in_point":   e.InPoint.Format(time.RFC3339Nano),
			"out_point":  e.OutPoint.Format(time.RFC3339Nano),
			"timestamp":  e.At.Format(time.RFC3339Nano),
		}
	default:
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.client.Publish(ctx, topic, string(data)); err != nil {
		c.log.Warn("failed to publish event", "topic", topic, "error", err)
		return err
	}
	return nil
}
