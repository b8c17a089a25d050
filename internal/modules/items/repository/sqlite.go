package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"skladi/internal/modules/items/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-item-ids.sql
var getItemIDsSQL string

//go:embed sql/get-item-config.sql
var getItemConfigSQL string

//go:embed sql/upsert-item-config.sql
var upsertItemConfigSQL string

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository expects the schema from internal/db/migrate to be applied.
func NewSQLiteRepository(db *sql.DB) ItemRepository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) AppendReading(rd types.Reading) error {
	if rd.ItemID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidID, rd.ItemID)
	}
	if _, err := r.db.Exec(insertReadingSQL, rd.ItemID, rd.Timestamp, rd.Value); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *sqliteRepository) LatestReading(itemID string) (*types.Reading, error) {
	var rd types.Reading
	err := r.db.QueryRow(getLatestReadingSQL, itemID).Scan(&rd.ItemID, &rd.Timestamp, &rd.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest reading %q: %w", itemID, err)
	}
	return &rd, nil
}

func (r *sqliteRepository) ItemIDs() ([]string, error) {
	rows, err := r.db.Query(getItemIDsSQL)
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close item id rows", "error", err)
		}
	}()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sqliteRepository) GetConfig(itemID string) (types.ItemConfig, error) {
	return getConfig(r.db, itemID)
}

type queryRower interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getConfig(q queryRower, itemID string) (types.ItemConfig, error) {
	var ime, lokacija, komentar sql.NullString
	err := q.QueryRow(getItemConfigSQL, itemID).Scan(&ime, &lokacija, &komentar)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ItemConfig{}, nil
	}
	if err != nil {
		return types.ItemConfig{}, fmt.Errorf("get config %q: %w", itemID, err)
	}
	return types.ItemConfig{
		Ime:      nullToPtr(ime),
		Lokacija: nullToPtr(lokacija),
		Komentar: nullToPtr(komentar),
	}, nil
}

func (r *sqliteRepository) MergeConfig(itemID string, patch types.ItemConfig) (types.ItemConfig, error) {
	if itemID == "" {
		return types.ItemConfig{}, fmt.Errorf("%w: %q", ErrInvalidID, itemID)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return types.ItemConfig{}, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback merge config", "id", itemID, "error", err)
		}
	}()

	_, err = tx.Exec(upsertItemConfigSQL, itemID, ptrToNull(patch.Ime), ptrToNull(patch.Lokacija), ptrToNull(patch.Komentar))
	if err != nil {
		return types.ItemConfig{}, fmt.Errorf("upsert config %q: %w", itemID, err)
	}

	merged, err := getConfig(tx, itemID)
	if err != nil {
		return types.ItemConfig{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.ItemConfig{}, fmt.Errorf("commit: %w", err)
	}
	return merged, nil
}

func (r *sqliteRepository) Ping() error {
	var ok int
	if err := r.db.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrToNull(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
