package playback

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// VolumeControl is the output device volume.
type VolumeControl interface {
	AdjustVolume(delta float64) float64
	Volume() float64
}

// Handler maps remote commands onto the player.
type Handler struct {
	player *Player
	volume VolumeControl
	step   float64
}

// NewHandler creates a new playback handler. volume may be nil.
func NewHandler(player *Player, volume VolumeControl, step float64) *Handler {
	return &Handler{player: player, volume: volume, step: step}
}

// GetStatus returns the current session status.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	status := h.player.Status()
	resp := fiber.Map{
		"status":         status,
		"elapsedSeconds": status.Elapsed.Seconds(),
	}
	if h.volume != nil {
		resp["volume"] = h.volume.Volume()
	}
	return c.JSON(resp)
}

func (h *Handler) Play(c *fiber.Ctx) error {
	if err := h.player.Play(c.UserContext()); err != nil {
		return commandError(c, "play", err)
	}
	return h.GetStatus(c)
}

func (h *Handler) Pause(c *fiber.Ctx) error {
	h.player.Pause()
	return h.GetStatus(c)
}

func (h *Handler) Toggle(c *fiber.Ctx) error {
	if err := h.player.TogglePause(c.UserContext()); err != nil {
		return commandError(c, "toggle", err)
	}
	return h.GetStatus(c)
}

func (h *Handler) Stop(c *fiber.Ctx) error {
	h.player.Stop()
	return h.GetStatus(c)
}

func (h *Handler) Next(c *fiber.Ctx) error {
	if err := h.player.SkipNext(); err != nil {
		return commandError(c, "next", err)
	}
	return h.GetStatus(c)
}

func (h *Handler) Previous(c *fiber.Ctx) error {
	if err := h.player.SkipPrev(); err != nil {
		return commandError(c, "previous", err)
	}
	return h.GetStatus(c)
}

func (h *Handler) Last(c *fiber.Ctx) error {
	if err := h.player.SkipToLast(); err != nil {
		return commandError(c, "last", err)
	}
	return h.GetStatus(c)
}

// SkipToID skips to the playlist node with the :id parameter.
func (h *Handler) SkipToID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a number"})
	}
	if err := h.player.SkipToID(id); err != nil {
		return commandError(c, "skip", err)
	}
	return h.GetStatus(c)
}

// SkipToNumber skips to the 1-based playlist position :n.
func (h *Handler) SkipToNumber(c *fiber.Ctx) error {
	n, err := c.ParamsInt("n")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "n must be a number"})
	}
	if err := h.player.SkipToNumber(n); err != nil {
		return commandError(c, "number", err)
	}
	return h.GetStatus(c)
}

// Seek moves by ?seconds=, which may be negative. Without it the
// configured step forward is used.
func (h *Handler) Seek(c *fiber.Ctx) error {
	if c.Query("seconds") == "" {
		h.player.SeekForward()
		return h.GetStatus(c)
	}
	seconds := c.QueryFloat("seconds", 0)
	h.player.SeekBy(time.Duration(seconds * float64(time.Second)))
	return h.GetStatus(c)
}

// Position moves to the absolute ?seconds=.
func (h *Handler) Position(c *fiber.Ctx) error {
	seconds := c.QueryFloat("seconds", -1)
	if seconds < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "seconds must be a positive number"})
	}
	h.player.SetPosition(time.Duration(seconds * float64(time.Second)))
	return h.GetStatus(c)
}

func (h *Handler) Shuffle(c *fiber.Ctx) error {
	if c.QueryBool("reshuffle") {
		h.player.Reshuffle()
	} else {
		h.player.ToggleShuffle()
	}
	return h.GetStatus(c)
}

func (h *Handler) Repeat(c *fiber.Ctx) error {
	h.player.ToggleRepeat()
	return h.GetStatus(c)
}

// Volume adjusts the output volume by ?steps=, one step up by default.
func (h *Handler) Volume(c *fiber.Ctx) error {
	if h.volume == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "no output device"})
	}
	steps := c.QueryFloat("steps", 1)
	level := h.volume.AdjustVolume(steps * h.step)
	slog.Debug("Volume changed", "level", level)
	return h.GetStatus(c)
}

func commandError(c *fiber.Ctx, command string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNoSuchSong):
		status = fiber.StatusNotFound
	case errors.Is(err, ErrEmptyPlaylist):
		status = fiber.StatusConflict
	default:
		slog.Error("Playback command failed", "command", command, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
