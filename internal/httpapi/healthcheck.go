package httpapi

import (
	"log/slog"
	"net/http"

	"skladi/internal/utils"
)

// Pinger reports whether the item store is reachable.
type Pinger interface {
	Ping() error
}

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store      Pinger
	mqttStatus func() string
}

func NewHealthchecker(store Pinger, mqttStatus func() string) healthchecker {
	return &healthcheckerImpl{store: store, mqttStatus: mqttStatus}
}

func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		slog.Error("failed to check storage", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check storage")
		return
	}

	mqttStatus := "disabled"
	if h.mqttStatus != nil {
		mqttStatus = h.mqttStatus()
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"storage": "ok",
		"mqtt":    mqttStatus,
	})
}

func registerHealthcheck(mux *http.ServeMux, store Pinger, mqttStatus func() string) {
	healthchecker := NewHealthchecker(store, mqttStatus)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
