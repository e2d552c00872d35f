package library

import (
	"errors"
	"log/slog"

	"github.com/contre95/soulplay/src/music"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the library feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the library feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetEntry returns the tree below :id (the root when absent) down to
// ?depth= levels, 1 by default.
func (h *Handler) GetEntry(c *fiber.Ctx) error {
	id, _ := c.ParamsInt("id", 0)
	entry, err := h.service.Entry(id, c.QueryInt("depth", 1))
	if err != nil {
		return libraryError(c, err)
	}
	return c.JSON(entry)
}

func (h *Handler) Enqueue(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a number"})
	}
	count, err := h.service.Enqueue(id)
	if err != nil {
		return libraryError(c, err)
	}
	return c.JSON(fiber.Map{"enqueued": count})
}

func (h *Handler) Dequeue(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a number"})
	}
	count, err := h.service.Dequeue(id)
	if err != nil {
		return libraryError(c, err)
	}
	return c.JSON(fiber.Map{"dequeued": count})
}

func (h *Handler) Toggle(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a number"})
	}
	count, enqueued, err := h.service.Toggle(id)
	if err != nil {
		return libraryError(c, err)
	}
	return c.JSON(fiber.Map{"changed": count, "enqueued": enqueued})
}

// DequeuePath removes the song at ?path= from the playlist, whether or not
// it lies inside the library.
func (h *Handler) DequeuePath(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}
	h.service.DequeuePath(path)
	return c.SendStatus(fiber.StatusNoContent)
}

// Rescan rescans ?path=, or the whole library.
func (h *Handler) Rescan(c *fiber.Ctx) error {
	path := c.Query("path")
	if err := h.service.Rescan(c.UserContext(), path); err != nil {
		return libraryError(c, err)
	}
	return c.JSON(fiber.Map{"rescanned": path})
}

// Sort applies ?mode=name|modified, or the configured order for reset.
func (h *Handler) Sort(c *fiber.Ctx) error {
	switch mode := c.Query("mode", "reset"); mode {
	case "reset":
		h.service.ResetSort()
	case string(music.SortByName), string(music.SortByModified):
		h.service.Sort(music.SortMode(mode))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown sort mode " + mode})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func libraryError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrNotDirectory):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	slog.Error("Library request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
