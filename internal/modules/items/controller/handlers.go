package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"skladi/internal/modules/items/repository"
	shared "skladi/internal/shared/types"
	"skladi/internal/utils"
)

const maxBodyBytes = 1 << 20

type updateItemResponse struct {
	Message       string `json:"message"`
	UpdatedFields any    `json:"updated_fields"`
}

func (c *itemsControllerImpl) handleSensorData(w http.ResponseWriter, r *http.Request) {
	var msg shared.ReadingMessage
	if err := decodeJSONBody(w, r, &msg); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "No JSON data provided")
		return
	}

	rd, err := c.service.IngestMessage(msg)
	switch {
	case errors.Is(err, shared.ErrMissingID), errors.Is(err, shared.ErrMissingValue):
		utils.WriteError(w, http.StatusBadRequest, `Missing "id" or "value" in JSON payload`)
		return
	case errors.Is(err, repository.ErrInvalidID):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, shared.ErrInvalidValue):
		utils.WriteError(w, http.StatusBadRequest, `"value" must be a string or a number`)
		return
	case errors.Is(err, shared.ErrLineBreak):
		utils.WriteError(w, http.StatusBadRequest, `"value" must not contain line breaks`)
		return
	case err != nil:
		slog.Error("failed to store reading", "id", msg.ID, "value", string(msg.Value), "error", err)
		utils.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error writing data to file: %v", err))
		return
	}

	slog.Debug("reading stored", "id", rd.ItemID, "value", rd.Value, "timestamp", rd.Timestamp)
	utils.WriteMessage(w, http.StatusOK, fmt.Sprintf("Data for %s received and saved successfully.", rd.ItemID))
}

func (c *itemsControllerImpl) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing item id")
		return
	}

	patch, err := parseConfigPatch(w, r)
	if errors.Is(err, errEmptyBody) {
		utils.WriteError(w, http.StatusBadRequest, "No data provided")
		return
	}
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	merged, err := c.service.UpdateConfig(id, patch)
	if errors.Is(err, repository.ErrInvalidID) {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("failed to update item config", "id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Error writing config file for ID %s: %v", id, err))
		return
	}

	utils.WriteJSON(w, http.StatusOK, updateItemResponse{
		Message:       "Item updated successfully",
		UpdatedFields: merged,
	})
}

func (c *itemsControllerImpl) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := c.service.ListItems()
	if errors.Is(err, repository.ErrDataDirMissing) {
		utils.WriteError(w, http.StatusInternalServerError, "Data directory not found")
		return
	}
	if err != nil {
		slog.Error("failed to list items", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}
