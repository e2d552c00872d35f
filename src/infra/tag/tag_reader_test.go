package tag

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

func TestParseGain(t *testing.T) {
	cases := map[string]float64{
		"-6.50 dB": -6.5,
		"+1.25 dB": 1.25,
		"3.1":      3.1,
		"  -0.5db": -0.5,
		"":         0,
		"loud":     0,
	}
	for in, want := range cases {
		if got := ParseGain(in); got != want {
			t.Errorf("ParseGain(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRawGains(t *testing.T) {
	raw := map[string]interface{}{
		"replaygain_track_gain": "-7.00 dB",
		"title":                 "ignored",
		"year":                  2001,
	}
	raw["----:com.apple.iTunes:REPLAYGAIN_ALBUM_GAIN"] = "-3.00 dB"
	track, album := rawGains(raw)
	if track != -7 || album != -3 {
		t.Errorf("rawGains() = %v, %v", track, album)
	}
}

func writeFLACFixture(t *testing.T, path string) {
	t.Helper()
	cmt := flacvorbis.New()
	cmt.Add(flacvorbis.FIELD_TITLE, "Song One")
	cmt.Add(flacvorbis.FIELD_ARTIST, "Artist")
	cmt.Add(flacvorbis.FIELD_ALBUM, "Album")
	cmt.Add(flacvorbis.FIELD_DATE, "1999")
	cmt.Add("ALBUMARTIST", "Various")
	cmt.Add("REPLAYGAIN_TRACK_GAIN", "-4.20 dB")
	cmt.Add("REPLAYGAIN_ALBUM_GAIN", "-5.10 dB")
	comment := cmt.Marshal()

	var img bytes.Buffer
	if err := png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front cover", img.Bytes(), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	picture := pic.Marshal()

	f := &goflac.File{Meta: []*goflac.MetaDataBlock{
		{Type: goflac.StreamInfo, Data: make([]byte, 34)},
		&comment,
		&picture,
	}}
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadFLACTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	writeFLACFixture(t, path)

	tags, err := NewTagReader().ReadFileTags(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFileTags() error = %v", err)
	}
	if tags.Title != "Song One" || tags.Artist != "Artist" || tags.Album != "Album" {
		t.Errorf("text tags = %+v", tags)
	}
	if tags.AlbumArtist != "Various" || tags.Date != "1999" {
		t.Errorf("album artist/date = %q/%q", tags.AlbumArtist, tags.Date)
	}
	if tags.ReplayGainTrack != -4.2 || tags.ReplayGainAlbum != -5.1 {
		t.Errorf("gains = %v/%v", tags.ReplayGainTrack, tags.ReplayGainAlbum)
	}
	if tags.PictureMIME != "image/png" || len(tags.Picture) == 0 {
		t.Errorf("picture = %q (%d bytes)", tags.PictureMIME, len(tags.Picture))
	}
}

func TestReadFileTagsMissingFile(t *testing.T) {
	_, err := NewTagReader().ReadFileTags(context.Background(), filepath.Join(t.TempDir(), "nope.flac"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}
