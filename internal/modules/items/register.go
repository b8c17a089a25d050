package items

import (
	"log/slog"
	"net/http"

	"skladi/internal/modules/items/controller"
	"skladi/internal/modules/items/repository"
	"skladi/internal/modules/items/service"
)

// RegisterFeature mounts the item routes on mux. The returned service can
// additionally be attached to a broker subscriber.
func RegisterFeature(mux *http.ServeMux, repo repository.ItemRepository, logger *slog.Logger) *service.Service {
	itemsService := service.NewService(repo, logger)
	itemsController := controller.NewItemsController(itemsService)
	itemsController.RegisterRoutes(mux)
	return itemsService
}
