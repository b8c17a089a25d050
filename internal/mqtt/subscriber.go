package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skladi/internal/config"
	shared "skladi/internal/shared/types"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscriber consumes reading messages published on the configured topic.
type Subscriber struct {
	*session

	handlerMu sync.RWMutex
	handler   func(msg shared.ReadingMessage) error

	subscribed atomic.Bool
}

func NewSubscriber(cfg config.MQTTConfig, logger *slog.Logger) *Subscriber {
	s := &Subscriber{}
	s.session = newSession(cfg, logger, func() {
		// Clean sessions drop subscriptions, so restore them after a reconnect.
		if !s.subscribed.Load() {
			return
		}
		if err := s.subscribe(context.Background()); err != nil {
			s.logger.Error("mqtt resubscribe failed", "topic", cfg.Topic, "error", err)
		}
	})
	return s
}

// SetMessageHandler sets the handler called for every valid reading message.
// Set it before Connect so messages queued by the broker are not dropped.
func (s *Subscriber) SetMessageHandler(handler func(msg shared.ReadingMessage) error) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Connect establishes the broker connection and subscribes to the topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	if err := s.connect(ctx); err != nil {
		return err
	}
	if err := s.subscribe(ctx); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	s.subscribed.Store(true)
	return nil
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	topic := s.cfg.Topic
	qos := byte(1)

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if err := wait(ctx, token, 5*time.Second); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var msg shared.ReadingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Warn("failed to parse reading message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}
	if msg.ID == "" {
		msg.ID = itemIDFromTopic(topic)
	}

	if err := msg.Validate(); err != nil {
		s.logger.Warn("invalid reading message", "topic", topic, "id", msg.ID, "error", err)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		return
	}

	if err := handler(msg); err != nil {
		s.logger.Error("message handler failed", "topic", topic, "id", msg.ID, "error", err)
	}
}

// itemIDFromTopic extracts {id} from items/{id}/readings.
func itemIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "items" && parts[2] == "readings" {
		return parts[1]
	}
	return ""
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	if s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.Topic)
		token.WaitTimeout(2 * time.Second)
	}
	s.stop()
	s.logger.Info("mqtt subscriber disconnected")
}

// StatusOf reports the health of an optional subscriber.
func StatusOf(s *Subscriber) string {
	if s == nil {
		return StatusDisabled
	}
	return s.Status()
}
