package playlists

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/contre95/soulplay/src/features/config"
	"github.com/contre95/soulplay/src/features/playback"
	"github.com/contre95/soulplay/src/infra/tag"
	"github.com/samber/lo"
)

var ErrInvalidName = errors.New("invalid playlist name")

// Enqueuer adds files or directories to the live playlist.
type Enqueuer interface {
	EnqueuePaths(ctx context.Context, paths []string) (int, error)
}

// Queue exposes the live playlist.
type Queue interface {
	Paths() []string
	Queue() []playback.QueueItem
	Status() playback.Status
}

// TrackInfo reads what an #EXTINF line shows.
type TrackInfo interface {
	ReadFileTags(ctx context.Context, path string) (*tag.Tags, error)
	ReadProperties(path string) (tag.Properties, error)
}

// Service is the domain service for the playlists feature. Playlists are
// m3u files in the configured directory.
type Service struct {
	configManager *config.Manager
	enqueuer      Enqueuer
	queue         Queue
	info          TrackInfo
}

// NewService creates a new playlists service. info may be nil, in which
// case saved entries carry file names and unknown durations.
func NewService(cfgManager *config.Manager, enqueuer Enqueuer, queue Queue, info TrackInfo) *Service {
	return &Service{
		configManager: cfgManager,
		enqueuer:      enqueuer,
		queue:         queue,
		info:          info,
	}
}

// resolve maps a playlist name or path to a file. Bare names live in the
// playlists directory and get the .m3u extension.
func (s *Service) resolve(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return filepath.Clean(name), nil
	}
	if strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".m3u" && ext != ".m3u8" {
		name += ".m3u"
	}
	return filepath.Join(s.configManager.Get().Playlists.Dir, name), nil
}

// List returns the m3u files in the playlists directory.
func (s *Service) List() ([]string, error) {
	dir := s.configManager.Get().Playlists.Dir
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		return e.Name(), !e.IsDir() && (ext == ".m3u" || ext == ".m3u8")
	})
	sort.Strings(names)
	return names, nil
}

// Load enqueues every song of the playlist. Missing files are skipped.
func (s *Service) Load(ctx context.Context, name string) (int, error) {
	slog.Debug("Load playlist service called", "name", name)
	path, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read playlist: %w", err)
	}
	paths, err := ParseM3U(string(content), filepath.Dir(path))
	if err != nil {
		return 0, err
	}

	existing := lo.Filter(paths, func(p string, _ int) bool {
		if _, err := os.Stat(p); err != nil {
			slog.Warn("Playlist entry not found, skipping", "playlist", path, "path", p)
			return false
		}
		return true
	})
	count, err := s.enqueuer.EnqueuePaths(ctx, existing)
	if err != nil {
		return count, fmt.Errorf("failed to enqueue playlist: %w", err)
	}
	slog.Info("Playlist loaded", "playlist", path, "entries", len(paths), "enqueued", count)
	return count, nil
}

// Save writes the live playlist to name and returns the file path.
func (s *Service) Save(ctx context.Context, name string) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	entries := lo.Map(s.queue.Paths(), func(p string, _ int) M3UEntry {
		return s.entry(ctx, p)
	})
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create playlists directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateM3U(entries)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write playlist: %w", err)
	}
	slog.Info("Playlist saved", "playlist", path, "entries", len(entries))
	return path, nil
}

func (s *Service) entry(ctx context.Context, path string) M3UEntry {
	e := M3UEntry{Path: path}
	if s.info == nil {
		return e
	}
	if props, err := s.info.ReadProperties(path); err == nil {
		e.Duration = props.Duration
	}
	if tags, err := s.info.ReadFileTags(ctx, path); err == nil && tags != nil && tags.Title != "" {
		e.Title = tags.Title
		if tags.Artist != "" {
			e.Title = tags.Artist + " - " + tags.Title
		}
	}
	return e
}

// Current returns the live playlist.
func (s *Service) Current() []playback.QueueItem {
	return s.queue.Queue()
}

// KeepCurrent adds the song being played to the special playlist.
func (s *Service) KeepCurrent(ctx context.Context) (string, bool, error) {
	path := s.queue.Status().Path
	added, err := s.AddToSpecial(ctx, path)
	return path, added, err
}

// AddToSpecial appends path to the special playlist unless it is already
// there. It reports whether the file changed.
func (s *Service) AddToSpecial(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("no song to add: %w", ErrInvalidName)
	}
	special, err := s.resolve(s.configManager.Get().Playlists.Special)
	if err != nil {
		return false, err
	}

	content, err := os.ReadFile(special)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read special playlist: %w", err)
	}
	existing, err := ParseM3U(string(content), filepath.Dir(special))
	if err != nil {
		return false, err
	}
	if lo.Contains(existing, filepath.Clean(path)) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(special), 0o755); err != nil {
		return false, fmt.Errorf("failed to create playlists directory: %w", err)
	}
	file, err := os.OpenFile(special, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open special playlist: %w", err)
	}
	defer file.Close()

	line := GenerateM3U([]M3UEntry{s.entry(ctx, path)})
	if len(content) > 0 {
		line = strings.TrimPrefix(line, "#EXTM3U\n")
		if !strings.HasSuffix(string(content), "\n") {
			line = "\n" + line
		}
	}
	if _, err := file.WriteString(line); err != nil {
		return false, fmt.Errorf("failed to write special playlist: %w", err)
	}
	slog.Info("Song added to special playlist", "playlist", special, "path", path)
	return true, nil
}
