package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/contre95/soulplay/src/features/config"
	"github.com/contre95/soulplay/src/features/metrics"
	"github.com/contre95/soulplay/src/infra/watcher"
	"github.com/contre95/soulplay/src/music"
	"github.com/samber/lo"
)

// PlaylistEditor gives exclusive access to the live playlist.
type PlaylistEditor interface {
	EditPlaylist(fn func(pl *music.PlayList))
}

// Service is the domain service for the library feature. It owns the
// library tree and keeps its enqueued overlay in step with the playlist.
type Service struct {
	mu            sync.RWMutex
	configManager *config.Manager
	cache         music.TreeCache
	playlist      PlaylistEditor
	metrics       *metrics.Collector
	scanner       *Scanner
	tree          *music.FileSystemEntry
	sortMode      music.SortMode
}

// NewService creates a new library service. cache may be nil to always scan.
func NewService(cfgManager *config.Manager, cache music.TreeCache, playlist PlaylistEditor, collector *metrics.Collector) *Service {
	cfg := cfgManager.Get()
	return &Service{
		configManager: cfgManager,
		cache:         cache,
		playlist:      playlist,
		metrics:       collector,
		scanner:       NewScanner(cfg.Library.Extensions),
		sortMode:      configuredSort(cfg),
	}
}

func configuredSort(cfg *config.Config) music.SortMode {
	if cfg.Library.Sort == string(music.SortByModified) {
		return music.SortByModified
	}
	return music.SortByName
}

// Load builds the tree from the cache when one is available, scanning the
// library otherwise, and reconciles it with the playlist.
func (s *Service) Load(ctx context.Context) error {
	root := s.configManager.Get().LibraryPath
	start := time.Now()

	var tree *music.FileSystemEntry
	if s.cache != nil {
		cached, err := s.cache.LoadTree(ctx, root)
		switch {
		case err != nil:
			slog.Warn("Failed to load library cache, scanning instead", "error", err)
		case cached != nil:
			tree = cached
			s.scanner.Follow(tree)
			slog.Info("Library loaded from cache", "path", root)
		}
	}

	if tree == nil {
		scanned, stats, err := s.scanner.Scan(ctx, root)
		if err != nil {
			return fmt.Errorf("failed to scan library: %w", err)
		}
		tree = scanned
		slog.Info("Library scanned", "path", root, "songs", stats.Songs, "dirs", stats.Dirs, "failures", stats.Failures, "took", time.Since(start))
		s.store(ctx, tree)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tree.Sort(s.sortMode)
	s.tree = tree
	enqueued := s.reconcile()
	dirs, songs := countEntries(tree)
	s.metrics.LibraryScanned(time.Since(start), dirs, songs, enqueued)
	return nil
}

func (s *Service) store(ctx context.Context, tree *music.FileSystemEntry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.StoreTree(ctx, tree); err != nil {
		slog.Warn("Failed to store library cache", "error", err)
	}
}

func countEntries(tree *music.FileSystemEntry) (dirs, songs int) {
	tree.Walk(func(e *music.FileSystemEntry) bool {
		if e.IsDir {
			dirs++
		} else {
			songs++
		}
		return true
	})
	return dirs, songs
}

// reconcile marks the songs already in the playlist and points playlist
// nodes at the current tree entries. mu must be held.
func (s *Service) reconcile() int {
	var enqueued int
	byPath := lo.KeyBy(s.tree.Songs(), func(e *music.FileSystemEntry) string { return e.Path })
	s.playlist.EditPlaylist(func(pl *music.PlayList) {
		enqueued = Reconcile(s.tree, pl.Paths())
		for _, n := range pl.Nodes() {
			n.Entry = byPath[n.Path]
		}
	})
	return enqueued
}

// Rescan re-reads the directory at subpath and reconciles the result.
func (s *Service) Rescan(ctx context.Context, subpath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return fmt.Errorf("library not loaded: %w", ErrNotFound)
	}
	if subpath == "" {
		subpath = s.tree.Path
	}

	start := time.Now()
	sub, stats, err := s.scanner.Rescan(ctx, s.tree, subpath)
	if err != nil {
		return fmt.Errorf("failed to rescan %s: %w", subpath, err)
	}
	if sub != nil {
		sub.Sort(s.sortMode)
	}
	enqueued := s.reconcile()
	dirs, songs := countEntries(s.tree)
	s.metrics.LibraryScanned(time.Since(start), dirs, songs, enqueued)
	slog.Info("Library rescanned", "path", subpath, "songs", stats.Songs, "took", time.Since(start))
	s.store(ctx, s.tree)
	return nil
}

func (s *Service) find(id int) (*music.FileSystemEntry, error) {
	if s.tree == nil {
		return nil, ErrNotFound
	}
	e := s.tree.FindByID(id)
	if e == nil {
		return nil, fmt.Errorf("entry %d: %w", id, ErrNotFound)
	}
	return e, nil
}

// Enqueue enqueues the song or every song below the directory with id and
// appends them to the playlist in tree order.
func (s *Service) Enqueue(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(id)
	if err != nil {
		return 0, err
	}
	return s.enqueue(e), nil
}

func (s *Service) enqueue(e *music.FileSystemEntry) int {
	var added []*music.FileSystemEntry
	if e.IsDir {
		added = EnqueueSubtree(e)
	} else if Enqueue(e) {
		added = []*music.FileSystemEntry{e}
	}
	if len(added) > 0 {
		s.playlist.EditPlaylist(func(pl *music.PlayList) {
			for _, a := range added {
				pl.Append(a.Path, a)
			}
		})
		slog.Debug("Enqueued", "path", e.Path, "count", len(added), "first", added[0].Path)
	}
	s.metrics.LibraryEnqueued(s.tree.EnqueuedCount())
	return len(added)
}

// Dequeue dequeues the song or every song below the directory with id and
// removes them from the playlist.
func (s *Service) Dequeue(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(id)
	if err != nil {
		return 0, err
	}
	return s.dequeue(e), nil
}

func (s *Service) dequeue(e *music.FileSystemEntry) int {
	var removed []*music.FileSystemEntry
	if e.IsDir {
		removed = DequeueSubtree(e)
	} else if Dequeue(e) {
		removed = []*music.FileSystemEntry{e}
	}
	s.removePaths(lo.Map(removed, func(r *music.FileSystemEntry, _ int) string { return r.Path }))
	s.metrics.LibraryEnqueued(s.tree.EnqueuedCount())
	return len(removed)
}

func (s *Service) removePaths(paths []string) {
	if len(paths) == 0 {
		return
	}
	set := lo.SliceToMap(paths, func(p string) (string, bool) { return p, true })
	s.playlist.EditPlaylist(func(pl *music.PlayList) {
		for _, n := range pl.Nodes() {
			if set[n.Path] {
				pl.Remove(n)
			}
		}
	})
}

// Toggle dequeues a fully enqueued entry and enqueues anything else. It
// returns the number of songs changed and whether they were enqueued.
func (s *Service) Toggle(id int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(id)
	if err != nil {
		return 0, false, err
	}
	if (e.IsDir && FullyEnqueued(e)) || (!e.IsDir && e.IsEnqueued) {
		return s.dequeue(e), false, nil
	}
	return s.enqueue(e), true, nil
}

// DequeuePath removes the song at path from the playlist and clears its
// flag when it is part of the library.
func (s *Service) DequeuePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = filepath.Clean(path)
	if s.tree != nil {
		DequeueByPath(s.tree, path)
		s.metrics.LibraryEnqueued(s.tree.EnqueuedCount())
	}
	s.removePaths([]string{path})
}

// EnqueuePaths enqueues files or directories given by path. Paths inside
// the library go through the tree; others are scanned on their own and
// appended without a tree entry. A path covered by an earlier one in the
// same call is skipped.
func (s *Service) EnqueuePaths(ctx context.Context, paths []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	var handled []*music.FileSystemEntry
	appended := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return total, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		if s.tree != nil {
			if e := s.tree.Find(abs); e != nil {
				if lo.ContainsBy(handled, func(d *music.FileSystemEntry) bool { return e == d || e.IsDescendantOf(d) }) {
					slog.Debug("Skipping path already enqueued in this request", "path", abs)
					continue
				}
				handled = append(handled, e)
				total += s.enqueue(e)
				continue
			}
		}
		n, err := s.enqueueOutside(ctx, abs, appended)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// enqueueOutside appends the songs at path that are not in appended yet.
func (s *Service) enqueueOutside(ctx context.Context, path string, appended map[string]bool) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var songs []string
	if info.IsDir() {
		tree, _, err := NewScanner(s.configManager.Get().Library.Extensions).Scan(ctx, path)
		if err != nil {
			return 0, err
		}
		tree.Sort(s.sortMode)
		songs = lo.Map(tree.Songs(), func(e *music.FileSystemEntry, _ int) string { return e.Path })
	} else {
		songs = []string{path}
	}
	songs = lo.Reject(songs, func(p string, _ int) bool { return appended[p] })
	if len(songs) == 0 {
		return 0, nil
	}
	s.playlist.EditPlaylist(func(pl *music.PlayList) {
		for _, p := range songs {
			appended[p] = true
			pl.Append(p, nil)
		}
	})
	return len(songs), nil
}

// Sort reorders the tree children by mode.
func (s *Service) Sort(mode music.SortMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortMode = mode
	if s.tree != nil {
		s.tree.Sort(mode)
	}
}

// ResetSort restores the configured sort order.
func (s *Service) ResetSort() {
	s.Sort(configuredSort(s.configManager.Get()))
}

// EntryView is a serializable copy of a tree entry.
type EntryView struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	Path          string      `json:"path"`
	IsDir         bool        `json:"isDir"`
	Enqueued      bool        `json:"enqueued"`
	EnqueuedCount int         `json:"enqueuedCount,omitempty"`
	Children      []EntryView `json:"children,omitempty"`
}

func view(e *music.FileSystemEntry, depth int) EntryView {
	v := EntryView{ID: e.ID, Name: e.Name, Path: e.Path, IsDir: e.IsDir, Enqueued: e.IsEnqueued}
	if !e.IsDir {
		return v
	}
	v.EnqueuedCount = e.EnqueuedCount()
	v.Enqueued = FullyEnqueued(e)
	if depth != 0 {
		v.Children = lo.Map(e.Children, func(c *music.FileSystemEntry, _ int) EntryView {
			return view(c, depth-1)
		})
	}
	return v
}

// Entry returns the entry with id and its children down to depth levels. A
// negative depth copies the whole subtree. id 0 is the root.
func (s *Service) Entry(id, depth int) (EntryView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return EntryView{}, ErrNotFound
	}
	e := s.tree
	if id != 0 {
		var err error
		if e, err = s.find(id); err != nil {
			return EntryView{}, err
		}
	}
	return view(e, depth), nil
}

// Watch rescans the directories reported by events until ctx is done.
func (s *Service) Watch(ctx context.Context, events <-chan watcher.FileEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			for _, dir := range ev.Dirs {
				if err := s.Rescan(ctx, dir); err != nil {
					slog.Warn("Failed to rescan changed directory", "path", dir, "error", err)
				}
			}
		}
	}
}
