package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestLoadCreatesDefault(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	cfg := manager.Get()
	if cfg.Playback.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.Playback.SampleRate)
	}
	if cfg.Library.Sort != "name" {
		t.Errorf("Sort = %q, want name", cfg.Library.Sort)
	}
	if !slices.Contains(cfg.Library.Extensions, ".flac") || !slices.Contains(cfg.Library.Extensions, ".mp3") {
		t.Errorf("Extensions = %v, want flac and mp3", cfg.Library.Extensions)
	}
	for _, ext := range []string{".opus", ".m4a", ".aac", ".webm"} {
		if slices.Contains(cfg.Library.Extensions, ext) {
			t.Errorf("default Extensions include unplayable %s", ext)
		}
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "libraryPath: /music\nplayback:\n  sampleRate: 48000\n  bufferMillis: 100\n  tickMillis: 50\n  seekStepSeconds: 10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(LibraryEnv, "")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg := manager.Get()
	if cfg.LibraryPath != "/music" {
		t.Errorf("LibraryPath = %q", cfg.LibraryPath)
	}
	if cfg.Playback.SampleRate != 48000 || cfg.Playback.SeekStepSeconds != 10 {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Artwork.CoverSize != 256 {
		t.Errorf("CoverSize = %d, want default 256", cfg.Artwork.CoverSize)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("libraryPath: /music\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(LibraryEnv, "/elsewhere")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := manager.Get().LibraryPath; got != "/elsewhere" {
		t.Errorf("LibraryPath = %q, want /elsewhere", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "libraryPath: /music\nplayback:\n  repeat: sometimes\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Fatalf("Load() error = %v, want validation failure", err)
	}
}

func TestManagerSaveRoundTrip(t *testing.T) {
	isolateHome(t)
	cfg := createDefaultConfig()
	cfg.LibraryPath = "/srv/music"
	manager := NewManager(cfg)

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := manager.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "libraryPath: /srv/music") {
		t.Errorf("saved yaml missing library path:\n%s", data)
	}
	if !strings.Contains(manager.GetJSON(), `"LibraryPath":"/srv/music"`) {
		t.Errorf("GetJSON() = %s", manager.GetJSON())
	}
}
