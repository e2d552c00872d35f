package music

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/unidecode"
)

// FileSystemEntry is one node of the library tree. Parent is a navigation
// link only; the tree is owned from the root down.
type FileSystemEntry struct {
	ID         int
	Path       string
	Name       string
	IsDir      bool
	ModTime    time.Time
	Children   []*FileSystemEntry
	Parent     *FileSystemEntry
	IsEnqueued bool
}

// NewDirEntry creates a directory node.
func NewDirEntry(id int, path string) *FileSystemEntry {
	return &FileSystemEntry{ID: id, Path: path, Name: filepath.Base(path), IsDir: true}
}

// NewSongEntry creates a song leaf.
func NewSongEntry(id int, path string) *FileSystemEntry {
	return &FileSystemEntry{ID: id, Path: path, Name: filepath.Base(path)}
}

// AddChild appends child and sets its parent link.
func (e *FileSystemEntry) AddChild(child *FileSystemEntry) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// Walk visits e and every descendant depth first, in child order. Returning
// false from fn prunes the subtree below the visited node.
func (e *FileSystemEntry) Walk(fn func(*FileSystemEntry) bool) {
	if e == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range e.Children {
		child.Walk(fn)
	}
}

// Find returns the entry with the given path below (or equal to) e.
func (e *FileSystemEntry) Find(path string) *FileSystemEntry {
	path = filepath.Clean(path)
	var found *FileSystemEntry
	e.Walk(func(n *FileSystemEntry) bool {
		if found != nil {
			return false
		}
		if n.Path == path {
			found = n
			return false
		}
		return n.IsDir && (n.Path == "" || isPathPrefix(n.Path, path))
	})
	return found
}

// FindByID returns the entry with the given id below (or equal to) e.
func (e *FileSystemEntry) FindByID(id int) *FileSystemEntry {
	var found *FileSystemEntry
	e.Walk(func(n *FileSystemEntry) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Songs returns every song leaf below e in tree order.
func (e *FileSystemEntry) Songs() []*FileSystemEntry {
	var songs []*FileSystemEntry
	e.Walk(func(n *FileSystemEntry) bool {
		if !n.IsDir {
			songs = append(songs, n)
		}
		return true
	})
	return songs
}

// EnqueuedCount recomputes the number of enqueued song leaves below e.
func (e *FileSystemEntry) EnqueuedCount() int {
	if e == nil {
		return 0
	}
	if !e.IsDir {
		if e.IsEnqueued {
			return 1
		}
		return 0
	}
	total := 0
	for _, child := range e.Children {
		total += child.EnqueuedCount()
	}
	return total
}

// HasSongDescendant reports whether any song leaf exists below e.
func (e *FileSystemEntry) HasSongDescendant() bool {
	if e == nil {
		return false
	}
	for _, child := range e.Children {
		if !child.IsDir || child.HasSongDescendant() {
			return true
		}
	}
	return false
}

// HasDequeuedDescendant reports whether any song leaf below e is not enqueued.
func (e *FileSystemEntry) HasDequeuedDescendant() bool {
	if e == nil {
		return false
	}
	for _, child := range e.Children {
		if child.IsDir {
			if child.HasDequeuedDescendant() {
				return true
			}
			continue
		}
		if !child.IsEnqueued {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether e lies strictly below ancestor.
func (e *FileSystemEntry) IsDescendantOf(ancestor *FileSystemEntry) bool {
	if e == nil || ancestor == nil {
		return false
	}
	for p := e.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// SortMode selects the child order of directories.
type SortMode string

const (
	SortByName     SortMode = "name"
	SortByModified SortMode = "modified"
)

// Sort orders the children of every directory below e. Directories come
// before songs; names compare on their ASCII-folded, lowercased form.
func (e *FileSystemEntry) Sort(mode SortMode) {
	e.Walk(func(n *FileSystemEntry) bool {
		if !n.IsDir {
			return false
		}
		sort.SliceStable(n.Children, func(i, j int) bool {
			a, b := n.Children[i], n.Children[j]
			if a.IsDir != b.IsDir {
				return a.IsDir
			}
			if mode == SortByModified && !a.ModTime.Equal(b.ModTime) {
				return a.ModTime.After(b.ModTime)
			}
			return SortKey(a.Name) < SortKey(b.Name)
		})
		return true
	})
}

// SortKey folds name to lowercase ASCII for ordering.
func SortKey(name string) string {
	return strings.ToLower(unidecode.Unidecode(name))
}

func isPathPrefix(dir, path string) bool {
	if dir == path {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
