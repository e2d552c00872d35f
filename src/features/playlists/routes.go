package playlists

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the playlists feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	playlists := app.Group("/playlists")
	playlists.Get("/", handler.GetPlaylists)
	playlists.Get("/current", handler.GetCurrent)
	playlists.Post("/load", handler.Load)
	playlists.Post("/save", handler.Save)
	playlists.Post("/special", handler.Special)
}
