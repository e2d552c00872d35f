package hosting

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contre95/soulplay/src/features/config"
	"github.com/contre95/soulplay/src/features/library"
	"github.com/contre95/soulplay/src/features/metrics"
	"github.com/contre95/soulplay/src/features/playback"
	"github.com/contre95/soulplay/src/features/playlists"
	"github.com/gofiber/fiber/v2"
)

// Server is the HTTP remote control for the player.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, collector *metrics.Collector, playbackHandler *playback.Handler, libraryService *library.Service, playlistsService *playlists.Service) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				slog.Error("Internal Server Error", "error", err)
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Soulplay",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Remote.PrintRoutes,
	})

	// Add middleware
	app.Use(RequestIDMiddleware())
	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	config.RegisterRoutes(app, cfg)
	metrics.RegisterRoutes(app, metrics.NewHandler(collector))
	playback.RegisterRoutes(app, playbackHandler)
	library.RegisterRoutes(app, libraryService)
	playlists.RegisterRoutes(app, playlistsService)

	return &Server{app: app, port: cfg.Get().Remote.Port}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server. It blocks until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Remote control listening", "port", s.port)
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
