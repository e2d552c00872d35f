package hosting

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/contre95/soulplay/src/features/config"
	"github.com/contre95/soulplay/src/features/library"
	"github.com/contre95/soulplay/src/features/loading"
	"github.com/contre95/soulplay/src/features/metrics"
	"github.com/contre95/soulplay/src/features/playback"
	"github.com/contre95/soulplay/src/features/playlists"
	"github.com/contre95/soulplay/src/infra/decoder"
	"github.com/contre95/soulplay/src/music"
)

type brokenLoader struct{}

func (brokenLoader) Load(_ context.Context, path string) *music.SongData {
	return &music.SongData{FilePath: path, HasErrors: true}
}

func (brokenLoader) Unload(slot *music.SongSlot) bool { return slot.Release() }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.NewManager(&config.Config{
		LibraryPath: t.TempDir(),
		Playlists:   config.Playlists{Dir: filepath.Join(t.TempDir(), "playlists"), Special: "kept.m3u"},
	})
	collector := metrics.NewCollector()
	pipeline := loading.NewPipeline(brokenLoader{}, decoder.DefaultOptions(), 8000, nil, collector)
	t.Cleanup(pipeline.Close)
	player := playback.NewPlayer(pipeline, music.NewPlayList(), nil, collector, playback.Options{})
	lib := library.NewService(cfg, nil, player, collector)
	pls := playlists.NewService(cfg, lib, player, nil)
	return NewServer(cfg, collector, playback.NewHandler(player, nil, 0.5), lib, pls)
}

func get(t *testing.T, s *Server, target string, header ...string) (int, string, string) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header.Get(requestIDHeader)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body, id := get(t, s, "/health")
	if code != 200 || body != "OK" {
		t.Errorf("GET /health = %d %q", code, body)
	}
	if id == "" {
		t.Error("missing request id header")
	}
	if _, _, id := get(t, s, "/health", requestIDHeader, "abc"); id != "abc" {
		t.Errorf("request id = %q, want the caller's", id)
	}
}

func TestFeatureRoutesRegistered(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		target   string
		contains string
	}{
		{"/status", `"state":"stopped"`},
		{"/playlists/current", `"songs":[]`},
		{"/playlists/", `"playlists":null`},
		{"/metrics", "soulplay_playback_state"},
		{"/config", "libraryPath"},
	}
	for _, tc := range cases {
		code, body, _ := get(t, s, tc.target)
		if code != 200 {
			t.Errorf("GET %s = %d: %s", tc.target, code, body)
			continue
		}
		if !strings.Contains(body, tc.contains) {
			t.Errorf("GET %s body = %s, want it to contain %s", tc.target, body, tc.contains)
		}
	}
	if code, _, _ := get(t, s, "/nope"); code != 404 {
		t.Errorf("GET /nope = %d, want 404", code)
	}
}
