package playback

import "github.com/gofiber/fiber/v2"

// RegisterRoutes registers the playback routes
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/status", handler.GetStatus)

	player := app.Group("/player")
	player.Post("/play", handler.Play)
	player.Post("/pause", handler.Pause)
	player.Post("/toggle", handler.Toggle)
	player.Post("/stop", handler.Stop)
	player.Post("/next", handler.Next)
	player.Post("/previous", handler.Previous)
	player.Post("/last", handler.Last)
	player.Post("/skip/:id", handler.SkipToID)
	player.Post("/number/:n", handler.SkipToNumber)
	player.Post("/seek", handler.Seek)
	player.Post("/position", handler.Position)
	player.Post("/shuffle", handler.Shuffle)
	player.Post("/repeat", handler.Repeat)
	player.Post("/volume", handler.Volume)
}
