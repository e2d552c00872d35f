package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// Tags is the textual metadata and embedded picture of one file.
type Tags struct {
	Title           string
	Artist          string
	AlbumArtist     string
	Album           string
	Date            string
	ReplayGainTrack float64
	ReplayGainAlbum float64
	Picture         []byte
	PictureMIME     string
}

// TagReader reads tags with the most specific library available for the
// container: go-flac for FLAC, id3v2 for MP3 and dhowden/tag for the rest.
type TagReader struct{}

// NewTagReader creates a new TagReader
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadFileTags reads metadata from a music file. A file without any tag
// block yields empty Tags and no error.
func (r *TagReader) ReadFileTags(ctx context.Context, filePath string) (*Tags, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".flac":
		tags, err := r.readFLAC(filePath)
		if err == nil {
			return tags, nil
		}
		slog.Debug("FLAC metadata parse failed, trying generic reader", "path", filePath, "error", err)
	case ".mp3":
		tags, err := r.readMP3(filePath)
		if err == nil {
			return tags, nil
		}
		slog.Debug("ID3v2 parse failed, trying generic reader", "path", filePath, "error", err)
	}
	return r.readGeneric(filePath)
}

func (r *TagReader) readFLAC(filePath string) (*Tags, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	f, err := goflac.ParseMetadata(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	tags := &Tags{}
	for _, meta := range f.Meta {
		switch meta.Type {
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
			if err != nil {
				return nil, fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			tags.Title = firstComment(cmt, flacvorbis.FIELD_TITLE)
			tags.Artist = firstComment(cmt, flacvorbis.FIELD_ARTIST)
			tags.Album = firstComment(cmt, flacvorbis.FIELD_ALBUM)
			tags.Date = firstComment(cmt, flacvorbis.FIELD_DATE)
			tags.AlbumArtist = firstComment(cmt, "ALBUMARTIST")
			tags.ReplayGainTrack = ParseGain(firstComment(cmt, "REPLAYGAIN_TRACK_GAIN"))
			tags.ReplayGainAlbum = ParseGain(firstComment(cmt, "REPLAYGAIN_ALBUM_GAIN"))
		case goflac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
			if err != nil {
				slog.Debug("Skipping unreadable FLAC picture block", "path", filePath, "error", err)
				continue
			}
			// Front cover wins over whatever came first.
			if tags.Picture == nil || pic.PictureType == flacpicture.PictureTypeFrontCover {
				tags.Picture = pic.ImageData
				tags.PictureMIME = pic.MIME
			}
		}
	}
	return tags, nil
}

func firstComment(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func (r *TagReader) readMP3(filePath string) (*Tags, error) {
	t, err := id3v2.Open(filePath, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file for reading: %w", err)
	}
	defer t.Close()

	tags := &Tags{
		Title:       t.Title(),
		Artist:      t.Artist(),
		Album:       t.Album(),
		Date:        t.Year(),
		AlbumArtist: t.GetTextFrame(t.CommonID("Band/Orchestra/Accompaniment")).Text,
	}

	for _, frame := range t.GetFrames(t.CommonID("User defined text information frame")) {
		udtf, ok := frame.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		switch strings.ToUpper(udtf.Description) {
		case "REPLAYGAIN_TRACK_GAIN":
			tags.ReplayGainTrack = ParseGain(udtf.Value)
		case "REPLAYGAIN_ALBUM_GAIN":
			tags.ReplayGainAlbum = ParseGain(udtf.Value)
		}
	}

	for _, frame := range t.GetFrames(t.CommonID("Attached picture")) {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		if tags.Picture == nil || pic.PictureType == id3v2.PTFrontCover {
			tags.Picture = pic.Picture
			tags.PictureMIME = pic.MimeType
		}
	}
	return tags, nil
}

func (r *TagReader) readGeneric(filePath string) (*Tags, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if errors.Is(err, tag.ErrNoTagsFound) {
		return &Tags{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	tags := &Tags{
		Title:       m.Title(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Album:       m.Album(),
	}
	if year := m.Year(); year > 0 {
		tags.Date = strconv.Itoa(year)
	}
	if pic := m.Picture(); pic != nil {
		tags.Picture = pic.Data
		tags.PictureMIME = pic.MIMEType
	}
	tags.ReplayGainTrack, tags.ReplayGainAlbum = rawGains(m.Raw())
	return tags, nil
}

// rawGains finds replay gain values in a raw tag map. Key spelling differs
// per container (vorbis lowercases them, MP4 prefixes a freeform namespace).
func rawGains(raw map[string]interface{}) (track, album float64) {
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			continue
		}
		k := strings.ToLower(key)
		switch {
		case strings.HasSuffix(k, "replaygain_track_gain"):
			track = ParseGain(s)
		case strings.HasSuffix(k, "replaygain_album_gain"):
			album = ParseGain(s)
		}
	}
	return track, album
}

// ParseGain parses a replay gain value such as "-6.50 dB". Unparseable
// input yields 0.
func ParseGain(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "dB"), "db"))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		return 0
	}
	return v
}
