package playlists

import (
	"errors"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
)

// Handler handles HTTP requests for playlists
type Handler struct {
	service *Service
}

// NewHandler creates a new playlists handler
func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

// GetPlaylists returns the m3u files of the playlists directory.
func (h *Handler) GetPlaylists(c *fiber.Ctx) error {
	names, err := h.service.List()
	if err != nil {
		slog.Error("Failed to list playlists", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load playlists"})
	}
	return c.JSON(fiber.Map{"playlists": names})
}

// GetCurrent returns the live playlist.
func (h *Handler) GetCurrent(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"songs": h.service.Current()})
}

// Load enqueues the playlist named by ?name=.
func (h *Handler) Load(c *fiber.Ctx) error {
	name := c.Query("name")
	count, err := h.service.Load(c.UserContext(), name)
	if err != nil {
		slog.Error("Failed to load playlist", "error", err, "name", name)
		return playlistError(c, err)
	}
	return c.JSON(fiber.Map{"enqueued": count})
}

// Save writes the live playlist to ?name=.
func (h *Handler) Save(c *fiber.Ctx) error {
	name := c.Query("name")
	path, err := h.service.Save(c.UserContext(), name)
	if err != nil {
		slog.Error("Failed to save playlist", "error", err, "name", name)
		return playlistError(c, err)
	}
	return c.JSON(fiber.Map{"path": path})
}

// Special adds the current song to the special playlist.
func (h *Handler) Special(c *fiber.Ctx) error {
	path, added, err := h.service.KeepCurrent(c.UserContext())
	if err != nil {
		slog.Error("Failed to add to special playlist", "error", err, "path", path)
		return playlistError(c, err)
	}
	return c.JSON(fiber.Map{"path": path, "added": added})
}

func playlistError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidName):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, os.ErrNotExist):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
