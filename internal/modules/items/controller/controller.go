package controller

import (
	"net/http"

	"skladi/internal/modules/items/types"
	shared "skladi/internal/shared/types"
)

// ItemService is the part of service.Service the HTTP layer needs.
type ItemService interface {
	IngestMessage(msg shared.ReadingMessage) (types.Reading, error)
	UpdateConfig(id string, patch types.ItemConfig) (types.ItemConfig, error)
	ListItems() ([]types.ItemSummary, error)
}

type ItemsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type itemsControllerImpl struct {
	service ItemService
}

func NewItemsController(service ItemService) ItemsController {
	return &itemsControllerImpl{service: service}
}

func (c *itemsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /sensor-data", c.handleSensorData)
	mux.HandleFunc("GET /items", c.handleListItems)
	mux.HandleFunc("PUT /items/{id}", c.handleUpdateItem)
}
