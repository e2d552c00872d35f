package playback

import (
	"log/slog"
	"sync"
)

// Event names what changed in the session.
type Event string

const (
	EventSongChanged  Event = "song_changed"
	EventStateChanged Event = "state_changed"
	EventSeeked       Event = "seeked"
	EventLoadError    Event = "load_error"
	EventOptions      Event = "options_changed"
)

// Notifier receives session changes. It is called with the Player lock held
// and must not call back into the Player.
type Notifier interface {
	Notify(event Event, status Status)
}

// LogNotifier logs session changes and keeps the most recent status.
type LogNotifier struct {
	mu   sync.RWMutex
	last Status
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(event Event, status Status) {
	n.mu.Lock()
	n.last = status
	n.mu.Unlock()

	switch event {
	case EventSongChanged:
		slog.Info("Now playing", "title", status.Title, "artist", status.Artist, "album", status.Album, "number", status.Number)
	case EventLoadError:
		slog.Warn("Song could not be loaded, skipping", "path", status.Path)
	default:
		slog.Debug("Playback changed", "event", event, "state", status.State, "elapsed", status.Elapsed)
	}
}

// Last returns the status of the latest notification.
func (n *LogNotifier) Last() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.last
}

type multiNotifier []Notifier

func (m multiNotifier) Notify(event Event, status Status) {
	for _, n := range m {
		n.Notify(event, status)
	}
}

// Notifiers fans every event out to all of ns.
func Notifiers(ns ...Notifier) Notifier {
	return multiNotifier(ns)
}
