package playback

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contre95/soulplay/src/music"
)

var (
	ErrEmptyPlaylist = errors.New("playlist is empty")
	ErrNoSuchSong    = errors.New("no such song in playlist")
)

// State is the transport state of the session.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

var allStates = []string{Stopped.String(), Playing.String(), Paused.String()}

// RepeatMode controls how the successor of a song is chosen.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatSong
	RepeatList
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatSong:
		return "song"
	case RepeatList:
		return "list"
	default:
		return "off"
	}
}

// ParseRepeat maps the configuration spelling of a repeat mode.
func ParseRepeat(s string) (RepeatMode, error) {
	switch strings.ToLower(s) {
	case "", "off":
		return RepeatOff, nil
	case "song":
		return RepeatSong, nil
	case "list":
		return RepeatList, nil
	}
	return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
}

// Session holds every flag of the playback session. It is owned by the
// Player and only touched with the Player lock held; the output device never
// reads it.
type Session struct {
	State   State
	Repeat  RepeatMode
	Shuffle bool

	// Current is the node whose song is live.
	Current *music.Node
	// Next is the planned successor, preloaded after every promotion.
	Next *music.Node
	// TryNext is a pending user skip. It wins over Next until promoted.
	TryNext *music.Node

	SkipInProgress bool
	ClearingErrors bool
	errorStreak    int

	seekPending   time.Duration
	seekAbsolute  bool
	seekRequested bool
}

// Status is a point-in-time view of the session for display and remote
// control surfaces.
type Status struct {
	State          string        `json:"state"`
	Repeat         string        `json:"repeat"`
	Shuffle        bool          `json:"shuffle"`
	Elapsed        time.Duration `json:"elapsed"`
	Duration       time.Duration `json:"duration"`
	Number         int           `json:"number"`
	NodeID         int           `json:"nodeId"`
	PlaylistLength int           `json:"playlistLength"`
	TrackID        string        `json:"trackId,omitempty"`
	Path           string        `json:"path,omitempty"`
	Title          string        `json:"title,omitempty"`
	Artist         string        `json:"artist,omitempty"`
	Album          string        `json:"album,omitempty"`
	CoverPath      string        `json:"coverPath,omitempty"`
	HasErrors      bool          `json:"hasErrors"`
}
