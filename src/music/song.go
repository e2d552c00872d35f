package music

import (
	"image"
	"image/color"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MetadataMaxLength bounds every textual metadata field, in bytes.
const MetadataMaxLength = 256

// Metadata holds the tag values shown for a loaded song.
type Metadata struct {
	Title           string
	Artist          string
	AlbumArtist     string
	Album           string
	Date            string
	ReplayGainTrack float64
	ReplayGainAlbum float64
}

// SetTitle and friends store a value truncated to MetadataMaxLength-1 bytes
// on a rune boundary.
func (m *Metadata) SetTitle(v string)       { m.Title = clampField(v) }
func (m *Metadata) SetArtist(v string)      { m.Artist = clampField(v) }
func (m *Metadata) SetAlbumArtist(v string) { m.AlbumArtist = clampField(v) }
func (m *Metadata) SetAlbum(v string)       { m.Album = clampField(v) }
func (m *Metadata) SetDate(v string)        { m.Date = clampField(v) }

func clampField(v string) string {
	limit := MetadataMaxLength - 1
	if len(v) <= limit {
		return v
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return v[:cut]
}

// SongData is one loaded track. It is immutable once the loader returns it.
type SongData struct {
	TrackID      string
	FilePath     string
	CoverArtPath string
	Color        color.RGBA
	Metadata     *Metadata
	Cover        *image.RGBA
	CoverWidth   int
	CoverHeight  int
	AvgBitRate   int // kbit/s
	Duration     time.Duration
	HasErrors    bool
}

// DurationSeconds returns the duration as fractional seconds.
func (s *SongData) DurationSeconds() float64 {
	if s == nil {
		return 0
	}
	return s.Duration.Seconds()
}

// Title returns the tagged title, falling back to the file path.
func (s *SongData) Title() string {
	if s == nil {
		return ""
	}
	if s.Metadata != nil && s.Metadata.Title != "" {
		return s.Metadata.Title
	}
	return s.FilePath
}

// TrackIDFor creates a deterministic identifier for a file path.
func TrackIDFor(path string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+path)).String()
}

// SongSlot owns at most one SongData. Take and Release make the empty state
// explicit, so releasing twice is a no-op.
type SongSlot struct {
	song *SongData
}

// Put stores song in the slot, returning whatever was held before.
func (s *SongSlot) Put(song *SongData) *SongData {
	prev := s.song
	s.song = song
	return prev
}

// Get returns the held song without transferring ownership.
func (s *SongSlot) Get() *SongData { return s.song }

// Empty reports whether the slot holds nothing.
func (s *SongSlot) Empty() bool { return s.song == nil }

// Take transfers ownership of the held song to the caller.
func (s *SongSlot) Take() *SongData {
	song := s.song
	s.song = nil
	return song
}

// Release drops the held song, freeing its metadata and cover buffer.
// It reports whether anything was released.
func (s *SongSlot) Release() bool {
	song := s.Take()
	if song == nil {
		return false
	}
	song.Metadata = nil
	song.Cover = nil
	song.CoverWidth, song.CoverHeight = 0, 0
	return true
}
