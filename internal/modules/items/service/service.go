package service

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"skladi/internal/modules/items/repository"
	"skladi/internal/modules/items/types"
	shared "skladi/internal/shared/types"
)

// TimestampLayout is the server-local "YYYY-MM-DD HH:MM:SS" stamp written
// in front of every stored value.
const TimestampLayout = "2006-01-02 15:04:05"

// Service is shared by the HTTP controller and the MQTT ingest subscriber.
type Service struct {
	repository repository.ItemRepository
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repository repository.ItemRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger, now: time.Now}
}

// Ingest stamps value with the current local time and appends it to the
// series of id. Values holding CR or LF are rejected since every stored
// line is one reading.
func (s *Service) Ingest(id, value string) (types.Reading, error) {
	if strings.ContainsAny(value, "\r\n") {
		return types.Reading{}, fmt.Errorf("ingest %q: %w", id, shared.ErrLineBreak)
	}
	rd := types.Reading{
		ItemID:    id,
		Timestamp: s.now().Local().Format(TimestampLayout),
		Value:     value,
	}
	if err := s.repository.AppendReading(rd); err != nil {
		return types.Reading{}, fmt.Errorf("ingest %q: %w", id, err)
	}
	return rd, nil
}

// IngestMessage validates a wire message and ingests it.
func (s *Service) IngestMessage(msg shared.ReadingMessage) (types.Reading, error) {
	if err := msg.Validate(); err != nil {
		return types.Reading{}, err
	}
	value, err := msg.StringValue()
	if err != nil {
		return types.Reading{}, err
	}
	return s.Ingest(msg.ID, value)
}

// UpdateConfig merges patch into the stored config of id. An empty patch
// still rewrites the stored config.
func (s *Service) UpdateConfig(id string, patch types.ItemConfig) (types.ItemConfig, error) {
	merged, err := s.repository.MergeConfig(id, patch)
	if err != nil {
		return types.ItemConfig{}, fmt.Errorf("update config %q: %w", id, err)
	}
	return merged, nil
}

// ListItems builds a summary per item from its latest reading and config.
// Unreadable configs fall back to defaults.
func (s *Service) ListItems() ([]types.ItemSummary, error) {
	ids, err := s.repository.ItemIDs()
	if err != nil {
		return nil, err
	}

	items := make([]types.ItemSummary, 0, len(ids))
	for _, id := range ids {
		latest, err := s.repository.LatestReading(id)
		if err != nil {
			return nil, fmt.Errorf("latest reading %q: %w", id, err)
		}

		cfg, err := s.repository.GetConfig(id)
		if err != nil {
			s.logger.Warn("item config unreadable, using defaults", "id", id, "error", err)
			cfg = types.ItemConfig{}
		}

		items = append(items, types.NewItemSummary(id, latest, cfg))
	}
	return items, nil
}

// Healthy reports whether the backing store is reachable.
func (s *Service) Healthy() error {
	return s.repository.Ping()
}
