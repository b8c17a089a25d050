package repository

import (
	"errors"

	"skladi/internal/modules/items/types"
)

var (
	// ErrInvalidID is returned for ids that cannot name an item in the store.
	ErrInvalidID = errors.New("invalid item id")
	// ErrDataDirMissing is returned when the data directory does not exist.
	ErrDataDirMissing = errors.New("data directory not found")
	// ErrCorruptConfig wraps sidecar configs that cannot be decoded.
	ErrCorruptConfig = errors.New("corrupt item config")
)

// ReadingStore is the append-only time series of readings per item.
type ReadingStore interface {
	AppendReading(r types.Reading) error
	// LatestReading returns the most recent reading of an item, or nil when
	// the item has none.
	LatestReading(itemID string) (*types.Reading, error)
	// ItemIDs lists every item that has a reading series.
	ItemIDs() ([]string, error)
}

// ConfigStore keeps the descriptive metadata of items.
type ConfigStore interface {
	// GetConfig returns an empty config for items never configured.
	GetConfig(itemID string) (types.ItemConfig, error)
	// MergeConfig applies the non-nil fields of patch and returns the stored result.
	MergeConfig(itemID string, patch types.ItemConfig) (types.ItemConfig, error)
}

type ItemRepository interface {
	ReadingStore
	ConfigStore
	Ping() error
}
