package relay

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"skladi/internal/serial"
)

// Sink delivers one reading to the server, over HTTP or MQTT.
type Sink interface {
	Send(ctx context.Context, id, value string) error
}

// Handler turns serial lines into readings sent through a Sink.
type Handler struct {
	sink   Sink
	logger *slog.Logger
}

func NewHandler(sink Sink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sink: sink, logger: logger}
}

// HandleLine sends every entry of line in ascending id order. A failed entry
// is logged and does not stop the rest. It returns the number delivered.
func (h *Handler) HandleLine(ctx context.Context, line string) int {
	entries := serial.ParseLine(line)
	if len(entries) == 0 {
		h.logger.Debug("line carries no readings", "line", line)
		return 0
	}

	sent := 0
	for _, id := range slices.Sorted(maps.Keys(entries)) {
		value := entries[id]
		if err := h.sink.Send(ctx, id, value); err != nil {
			h.logger.Warn("failed to send reading", "id", id, "value", value, "error", err)
			continue
		}
		sent++
	}
	return sent
}
