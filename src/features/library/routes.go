package library

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the library feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	library := app.Group("/library")
	library.Get("/", handler.GetEntry)
	library.Get("/entries/:id", handler.GetEntry)
	library.Post("/entries/:id/enqueue", handler.Enqueue)
	library.Post("/entries/:id/dequeue", handler.Dequeue)
	library.Post("/entries/:id/toggle", handler.Toggle)
	library.Delete("/queue", handler.DequeuePath)
	library.Post("/rescan", handler.Rescan)
	library.Post("/sort", handler.Sort)
}
