package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"skladi/internal/config"
	"skladi/internal/db"
	"skladi/internal/db/migrate"
	"skladi/internal/httpapi"
	"skladi/internal/modules/items"
	"skladi/internal/modules/items/repository"
	"skladi/internal/mqtt"
)

// RunServer serves the item API until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.ServerConfig) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"dataDir", cfg.DataDir,
		"storageBackend", cfg.StorageBackend,
		"sqlitePath", cfg.SQLitePath,
		"corsAllowedOrigins", cfg.CORSAllowedOrigins,
		"mqttBroker", cfg.MQTT.Broker,
		"mqttPort", cfg.MQTT.Port,
		"mqttTopic", cfg.MQTT.Topic,
	)

	repo, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var subscriber *mqtt.Subscriber
	if cfg.MQTT.Enabled() {
		subscriber = mqtt.NewSubscriber(cfg.MQTT, slog.Default().With("component", "mqtt"))
	}

	mux := httpapi.NewMux(repo, cfg.StaticDir, func() string { return mqtt.StatusOf(subscriber) })
	itemsService := items.RegisterFeature(mux, repo, slog.Default().With("component", "items"))

	if subscriber != nil {
		// Set the handler before Connect: the broker may deliver right after CONNACK.
		itemsService.Register(subscriber)

		// A short initial timeout keeps startup from blocking when the broker is down.
		connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
		err := subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openStore builds the configured item repository and its cleanup.
func openStore(cfg config.ServerConfig) (repository.ItemRepository, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		conn, err := db.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := db.Close(conn); err != nil {
				slog.Error("db close", "error", err)
			}
		}
		if err := migrate.Run(conn); err != nil {
			closeDB()
			return nil, nil, err
		}
		if err := ping(conn); err != nil {
			closeDB()
			return nil, nil, err
		}
		slog.Info("database connection successful", "path", cfg.SQLitePath)
		return repository.NewSQLiteRepository(conn), closeDB, nil

	default:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		slog.Info("file storage ready", "dir", cfg.DataDir)
		return repository.NewFileRepository(cfg.DataDir), func() {}, nil
	}
}

func ping(conn *sql.DB) error {
	var ok int
	if err := conn.QueryRow(`SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	return nil
}
