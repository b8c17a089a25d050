package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skladi/internal/config"
	shared "skladi/internal/shared/types"
)

var errNotConnected = errors.New("mqtt client not connected")

// Publisher sends reading messages to items/{id}/readings.
type Publisher struct {
	*session
}

func NewPublisher(cfg config.MQTTConfig, logger *slog.Logger) *Publisher {
	return &Publisher{session: newSession(cfg, logger, nil)}
}

// Connect establishes connection to the MQTT broker.
// It waits for the initial connection and respects ctx and Close.
func (p *Publisher) Connect(ctx context.Context) error {
	return p.connect(ctx)
}

// ReadingTopic is the topic readings of id are published on.
func ReadingTopic(id string) string {
	return fmt.Sprintf("items/%s/readings", id)
}

// Send publishes one reading at QoS 1, not retained.
func (p *Publisher) Send(ctx context.Context, id, value string) error {
	if !p.IsConnected() {
		return errNotConnected
	}

	data, err := json.Marshal(shared.NewReadingMessage(id, value))
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	topic := ReadingTopic(id)
	token := p.client.Publish(topic, 1, false, data)
	if err := wait(ctx, token, 5*time.Second); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.Debug("published reading", "topic", topic, "id", id)
	return nil
}

// Close stops the publisher. Idempotent.
func (p *Publisher) Close() {
	p.stop()
	p.logger.Info("mqtt publisher disconnected")
}
