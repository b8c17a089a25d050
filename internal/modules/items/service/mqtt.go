package service

import (
	shared "skladi/internal/shared/types"
)

// MessageSubscriber delivers reading messages received from a broker.
type MessageSubscriber interface {
	SetMessageHandler(handler func(msg shared.ReadingMessage) error)
}

// Register routes broker messages through the same ingest path as HTTP.
func (s *Service) Register(subscriber MessageSubscriber) {
	subscriber.SetMessageHandler(func(msg shared.ReadingMessage) error {
		s.logger.Debug("processing reading message", "id", msg.ID)

		rd, err := s.IngestMessage(msg)
		if err != nil {
			s.logger.Error("failed to ingest reading", "id", msg.ID, "error", err)
			return err
		}

		s.logger.Debug("stored reading", "id", rd.ItemID, "timestamp", rd.Timestamp)
		return nil
	})
}
