package loading

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/contre95/soulplay/src/infra/artwork"
	"github.com/contre95/soulplay/src/infra/decoder"
	"github.com/contre95/soulplay/src/infra/tag"
	"github.com/contre95/soulplay/src/music"
)

// TagReader reads textual tags and the embedded picture of a file.
type TagReader interface {
	ReadFileTags(ctx context.Context, path string) (*tag.Tags, error)
}

// PropertiesReader reads stream parameters from headers.
type PropertiesReader interface {
	ReadProperties(path string) (tag.Properties, error)
}

// CoverSource turns embedded or sidecar pictures into display covers.
type CoverSource interface {
	FromEmbedded(key string, data []byte) (*artwork.Cover, error)
	FromSidecar(audioPath string) (*artwork.Cover, error)
}

// Loader builds SongData records. It never fails: extraction problems set
// HasErrors and leave the remaining fields best-effort filled.
type Loader struct {
	tags   TagReader
	props  PropertiesReader
	covers CoverSource
	opts   decoder.Options
}

// NewLoader creates a Loader. covers may be nil to skip artwork.
func NewLoader(tags TagReader, props PropertiesReader, covers CoverSource, opts decoder.Options) *Loader {
	return &Loader{tags: tags, props: props, covers: covers, opts: opts}
}

// Load reads path into a new SongData.
func (l *Loader) Load(ctx context.Context, path string) *music.SongData {
	song := &music.SongData{
		TrackID:  music.TrackIDFor(path),
		FilePath: path,
		Metadata: &music.Metadata{},
	}
	song.Metadata.SetTitle(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		slog.Warn("Song file not readable", "path", path, "error", err)
		song.HasErrors = true
		return song
	}

	kind := decoder.Detect(path)
	if !kind.Playable() {
		slog.Warn("No decoder for song", "path", path, "kind", kind)
		song.HasErrors = true
	}

	l.readTags(ctx, song)
	l.readProperties(song, kind, info.Size())
	return song
}

func (l *Loader) readTags(ctx context.Context, song *music.SongData) {
	tags, err := l.tags.ReadFileTags(ctx, song.FilePath)
	if err != nil {
		slog.Warn("Failed to read tags", "path", song.FilePath, "error", err)
		song.HasErrors = true
	}

	if tags != nil {
		m := song.Metadata
		if tags.Title != "" {
			m.SetTitle(tags.Title)
		}
		m.SetArtist(tags.Artist)
		m.SetAlbumArtist(tags.AlbumArtist)
		m.SetAlbum(tags.Album)
		m.SetDate(tags.Date)
		m.ReplayGainTrack = tags.ReplayGainTrack
		m.ReplayGainAlbum = tags.ReplayGainAlbum
	}

	if l.covers == nil {
		return
	}
	var cover *artwork.Cover
	if tags != nil && len(tags.Picture) > 0 {
		cover, err = l.covers.FromEmbedded(song.TrackID, tags.Picture)
		if err != nil {
			slog.Debug("Embedded cover unusable", "path", song.FilePath, "error", err)
		}
	}
	if cover == nil {
		cover, err = l.covers.FromSidecar(song.FilePath)
		if err != nil {
			slog.Debug("Sidecar cover unusable", "path", song.FilePath, "error", err)
		}
	}
	if cover != nil {
		song.Cover = cover.Image
		song.CoverWidth = cover.Width
		song.CoverHeight = cover.Height
		song.Color = cover.Color
		song.CoverArtPath = cover.Path
	}
}

// readProperties takes duration and bit rate from the stream headers. When
// taglib cannot parse the file the decoder's own header is used instead.
func (l *Loader) readProperties(song *music.SongData, kind decoder.Kind, size int64) {
	props, err := l.props.ReadProperties(song.FilePath)
	if err != nil {
		slog.Debug("Header properties unavailable, asking the decoder", "path", song.FilePath, "error", err)
	}
	song.Duration = props.Duration
	song.AvgBitRate = props.Bitrate

	if song.Duration <= 0 && kind.Playable() {
		dec, err := decoder.OpenKind(song.FilePath, kind, l.opts)
		if err != nil {
			slog.Warn("Failed to open decoder", "path", song.FilePath, "error", err)
			song.HasErrors = true
			return
		}
		song.Duration = dec.Duration()
		dec.Close()
	}

	if song.AvgBitRate <= 0 && song.Duration > 0 {
		song.AvgBitRate = int(float64(size*8) / song.Duration.Seconds() / 1000)
	}
}

// Unload releases the song held by slot. Unloading an empty slot is a no-op.
func (l *Loader) Unload(slot *music.SongSlot) bool {
	return slot.Release()
}

// timedLoad runs Load and reports how long it took.
func timedLoad(ctx context.Context, loader SongLoader, path string) (*music.SongData, time.Duration) {
	start := time.Now()
	song := loader.Load(ctx, path)
	return song, time.Since(start)
}
