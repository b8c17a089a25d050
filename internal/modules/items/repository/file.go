package repository

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"skladi/internal/modules/items/types"
)

const (
	readingFileSuffix = ".txt"
	configFileSuffix  = "_config.json"
)

type fileRepository struct {
	dir string
}

// NewFileRepository stores readings as {dir}/{id}.txt lines of "timestamp,value"
// and configs as {dir}/{id}_config.json. Writers are not synchronized.
func NewFileRepository(dir string) ItemRepository {
	return &fileRepository{dir: dir}
}

func (r *fileRepository) readingPath(itemID string) string {
	return filepath.Join(r.dir, itemID+readingFileSuffix)
}

func (r *fileRepository) configPath(itemID string) string {
	return filepath.Join(r.dir, itemID+configFileSuffix)
}

func validateID(itemID string) error {
	if itemID == "" || itemID == "." || itemID == ".." ||
		strings.ContainsAny(itemID, `/\`+"\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidID, itemID)
	}
	return nil
}

func (r *fileRepository) AppendReading(rd types.Reading) error {
	if err := validateID(rd.ItemID); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", r.dir, err)
	}

	path := r.readingPath(rd.ItemID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%s,%s\n", rd.Timestamp, rd.Value); err != nil {
		_ = f.Close()
		return fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (r *fileRepository) LatestReading(itemID string) (*types.Reading, error) {
	if err := validateID(itemID); err != nil {
		return nil, err
	}

	path := r.readingPath(itemID)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("close reading file", "path", path, "error", err)
		}
	}()

	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if last == "" {
		return nil, nil
	}

	ts, value, ok := strings.Cut(last, ",")
	if !ok {
		value = types.UnknownValue
	}
	return &types.Reading{ItemID: itemID, Timestamp: ts, Value: value}, nil
}

func (r *fileRepository) ItemIDs() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDataDirMissing, r.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", r.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := strings.CutSuffix(e.Name(), readingFileSuffix)
		if !ok || id == "" {
			continue
		}
		if err := validateID(id); err != nil {
			slog.Warn("skipping reading file with unusable name", "dir", r.dir, "file", e.Name())
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fileRepository) GetConfig(itemID string) (types.ItemConfig, error) {
	if err := validateID(itemID); err != nil {
		return types.ItemConfig{}, err
	}

	path := r.configPath(itemID)
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.ItemConfig{}, nil
	}
	if err != nil {
		return types.ItemConfig{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg types.ItemConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return types.ItemConfig{}, fmt.Errorf("%w: %s: %v", ErrCorruptConfig, path, err)
	}
	return cfg, nil
}

func (r *fileRepository) MergeConfig(itemID string, patch types.ItemConfig) (types.ItemConfig, error) {
	current, err := r.GetConfig(itemID)
	if errors.Is(err, ErrCorruptConfig) {
		slog.Warn("could not decode item config, starting fresh", "id", itemID, "error", err)
		current = types.ItemConfig{}
	} else if err != nil {
		return types.ItemConfig{}, err
	}

	merged := current.Merge(patch)

	b, err := json.MarshalIndent(merged, "", "    ")
	if err != nil {
		return types.ItemConfig{}, fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return types.ItemConfig{}, fmt.Errorf("mkdir %s: %w", r.dir, err)
	}
	path := r.configPath(itemID)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return types.ItemConfig{}, fmt.Errorf("write %s: %w", path, err)
	}
	return merged, nil
}

func (r *fileRepository) Ping() error {
	fi, err := os.Stat(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrDataDirMissing, r.dir)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", r.dir, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", r.dir)
	}
	return nil
}
