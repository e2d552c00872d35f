package playlists

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseM3U(t *testing.T) {
	content := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:120,Artist - Song",
		"a/one.flac",
		"",
		"  \"/abs/two.mp3\"  ",
		"# a comment",
		"file:///abs/three.ogg",
		"''",
	}, "\n")

	got, err := ParseM3U(content, "/music")
	if err != nil {
		t.Fatalf("ParseM3U() error = %v", err)
	}
	want := []string{
		filepath.Join("/music", "a", "one.flac"),
		"/abs/two.mp3",
		"/abs/three.ogg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseM3U() = %v, want %v", got, want)
	}
}

func TestGenerateM3U(t *testing.T) {
	got := GenerateM3U([]M3UEntry{
		{Path: "/m/a.flac", Title: "Artist - A", Duration: 185 * time.Second},
		{Path: "/m/b.mp3"},
	})
	want := "#EXTM3U\n" +
		"#EXTINF:185,Artist - A\n/m/a.flac\n" +
		"#EXTINF:-1,b\n/m/b.mp3\n"
	if got != want {
		t.Errorf("GenerateM3U() =\n%s\nwant\n%s", got, want)
	}
}
