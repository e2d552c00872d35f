package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/soulplay/src/music"
	"github.com/samber/lo"
)

var (
	ErrNotFound     = errors.New("library entry not found")
	ErrNotDirectory = errors.New("library entry is not a directory")
)

// ScanStats counts what a scan produced.
type ScanStats struct {
	Dirs     int
	Songs    int
	Skipped  int
	Failures int
}

// Scanner builds library trees from the file system. Entry ids are unique
// across every tree and subtree a Scanner produces.
type Scanner struct {
	extensions map[string]bool
	nextID     int
}

// NewScanner creates a scanner accepting files with the given extensions.
func NewScanner(extensions []string) *Scanner {
	return &Scanner{
		extensions: lo.SliceToMap(extensions, func(e string) (string, bool) {
			return strings.ToLower(e), true
		}),
	}
}

// Accepts reports whether path has a library extension.
func (s *Scanner) Accepts(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// Follow makes subsequent ids continue after the largest id in tree, for
// trees loaded from a cache.
func (s *Scanner) Follow(tree *music.FileSystemEntry) {
	tree.Walk(func(e *music.FileSystemEntry) bool {
		s.nextID = max(s.nextID, e.ID)
		return true
	})
}

func (s *Scanner) id() int {
	s.nextID++
	return s.nextID
}

// Scan builds the tree rooted at root. An unreadable root is an error; an
// unreadable directory below it becomes an empty subtree.
func (s *Scanner) Scan(ctx context.Context, root string) (*music.FileSystemEntry, ScanStats, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, ScanStats{}, fmt.Errorf("failed to read library root: %w", err)
	}
	if !info.IsDir() {
		return nil, ScanStats{}, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	var stats ScanStats
	tree := music.NewDirEntry(s.id(), root)
	tree.ModTime = info.ModTime()
	visited := map[string]bool{}
	markVisited(visited, root)
	if err := s.fill(ctx, tree, &stats, visited); err != nil {
		return nil, stats, err
	}
	stats.Dirs++
	return tree, stats, nil
}

// markVisited records the resolved location of dir. It reports false when
// that location was already scanned, which happens with symlinked
// directories and symlink cycles.
func markVisited(visited map[string]bool, dir string) bool {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if visited[resolved] {
		return false
	}
	visited[resolved] = true
	return true
}

func (s *Scanner) fill(ctx context.Context, dir *music.FileSystemEntry, stats *ScanStats, visited map[string]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		slog.Warn("Skipping unreadable directory", "path", dir.Path, "error", err)
		stats.Failures++
		return nil
	}
	for _, de := range entries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir.Path, name)
		info, err := os.Stat(path)
		if err != nil {
			slog.Debug("Skipping unreadable entry", "path", path, "error", err)
			stats.Skipped++
			continue
		}

		if info.IsDir() {
			if !markVisited(visited, path) {
				slog.Debug("Skipping directory scanned through another path", "path", path)
				stats.Skipped++
				continue
			}
			child := music.NewDirEntry(s.id(), path)
			child.ModTime = info.ModTime()
			if err := s.fill(ctx, child, stats, visited); err != nil {
				return err
			}
			if !child.HasSongDescendant() {
				continue
			}
			stats.Dirs++
			dir.AddChild(child)
			continue
		}
		if !s.Accepts(name) {
			stats.Skipped++
			continue
		}
		song := music.NewSongEntry(s.id(), path)
		song.ModTime = info.ModTime()
		dir.AddChild(song)
		stats.Songs++
	}
	return nil
}

// Rescan re-reads the directory at subpath inside tree and swaps in the new
// subtree. The enqueued overlay of the replaced subtree is lost; callers
// reconcile it against the playlist. It returns the new subtree, which is nil
// when the directory no longer holds songs.
func (s *Scanner) Rescan(ctx context.Context, tree *music.FileSystemEntry, subpath string) (*music.FileSystemEntry, ScanStats, error) {
	subpath = filepath.Clean(subpath)
	old := tree.Find(subpath)
	if old == nil {
		// A new directory: rescan the closest existing ancestor.
		parent := filepath.Dir(subpath)
		if parent == subpath || !isWithin(tree.Path, parent) {
			return nil, ScanStats{}, fmt.Errorf("%s: %w", subpath, ErrNotFound)
		}
		return s.Rescan(ctx, tree, parent)
	}
	if !old.IsDir {
		return nil, ScanStats{}, fmt.Errorf("%s: %w", subpath, ErrNotDirectory)
	}

	// Everything outside the rescanned directory stays in the tree, so
	// links back into it are cycles or duplicates.
	visited := map[string]bool{}
	tree.Walk(func(e *music.FileSystemEntry) bool {
		if e.IsDir && e != old {
			markVisited(visited, e.Path)
		}
		return e != old
	})
	markVisited(visited, old.Path)

	var stats ScanStats
	fresh := music.NewDirEntry(old.ID, old.Path)
	if info, err := os.Stat(old.Path); err == nil {
		fresh.ModTime = info.ModTime()
		if err := s.fill(ctx, fresh, &stats, visited); err != nil {
			return nil, stats, err
		}
	}
	stats.Dirs++

	old.Children = nil
	for _, child := range fresh.Children {
		old.AddChild(child)
	}
	old.ModTime = fresh.ModTime
	if old.Parent != nil && !old.HasSongDescendant() {
		removeChild(old.Parent, old)
		return nil, stats, nil
	}
	return old, stats, nil
}

func removeChild(parent, child *music.FileSystemEntry) {
	parent.Children = lo.Filter(parent.Children, func(c *music.FileSystemEntry, _ int) bool {
		return c != child
	})
	child.Parent = nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
