package app

import (
	"context"
	"fmt"
	"log/slog"

	"skladi/internal/config"
	"skladi/internal/mqtt"
	"skladi/internal/relay"
	"skladi/internal/serial"
	"skladi/internal/uploader"
)

// RunRelay forwards serial readings to the server until ctx is cancelled or
// the port fails.
func RunRelay(ctx context.Context, cfg config.RelayConfig) error {
	slog.Info("initializing relay",
		"serial_port", cfg.SerialPort,
		"serial_baud", cfg.SerialBaud,
		"upload_mode", cfg.UploadMode,
		"ingest_base_url", cfg.IngestBaseURL,
		"mqtt_broker", cfg.MQTT.Broker,
	)

	sink, closeSink, err := newSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	handler := relay.NewHandler(sink, slog.Default().With("component", "relay"))
	source := serial.NewSource(serial.Options{
		PortName:     cfg.SerialPort,
		Baud:         cfg.SerialBaud,
		PollInterval: cfg.PollInterval,
		SettleDelay:  cfg.SettleDelay,
	}, slog.Default().With("component", "serial"))

	if err := source.Run(ctx, func(line string) {
		slog.Info("received", "line", line)
		handler.HandleLine(ctx, line)
	}); err != nil {
		return err
	}

	slog.Info("relay shutting down")
	return nil
}

func newSink(ctx context.Context, cfg config.RelayConfig) (relay.Sink, func(), error) {
	if cfg.UploadMode == config.UploadMQTT {
		publisher := mqtt.NewPublisher(cfg.MQTT, slog.Default().With("component", "mqtt"))
		if err := publisher.Connect(ctx); err != nil {
			publisher.Close()
			return nil, nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		return publisher, publisher.Close, nil
	}

	client := uploader.NewClient(cfg.IngestBaseURL, cfg.UploadTimeout, slog.Default().With("component", "uploader"))
	return client, func() {}, nil
}
