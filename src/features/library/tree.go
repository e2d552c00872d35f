package library

import (
	"path/filepath"

	"github.com/contre95/soulplay/src/music"
	"github.com/samber/lo"
)

// Enqueue marks a song leaf as enqueued. It reports whether the flag changed.
func Enqueue(e *music.FileSystemEntry) bool {
	if e == nil || e.IsDir || e.IsEnqueued {
		return false
	}
	e.IsEnqueued = true
	return true
}

// Dequeue clears the enqueued flag of a song leaf. It reports whether the
// flag changed.
func Dequeue(e *music.FileSystemEntry) bool {
	if e == nil || e.IsDir || !e.IsEnqueued {
		return false
	}
	e.IsEnqueued = false
	return true
}

// EnqueueSubtree marks every song below dir and returns the newly enqueued
// ones in tree order.
func EnqueueSubtree(dir *music.FileSystemEntry) []*music.FileSystemEntry {
	return changedSongs(dir, Enqueue)
}

// DequeueSubtree clears every song below dir and returns the ones that
// changed.
func DequeueSubtree(dir *music.FileSystemEntry) []*music.FileSystemEntry {
	return changedSongs(dir, Dequeue)
}

func changedSongs(dir *music.FileSystemEntry, apply func(*music.FileSystemEntry) bool) []*music.FileSystemEntry {
	if dir == nil {
		return nil
	}
	var changed []*music.FileSystemEntry
	for _, song := range dir.Songs() {
		if apply(song) {
			changed = append(changed, song)
		}
	}
	return changed
}

// DequeueByPath finds the song at path below root and dequeues it. It
// returns the entry, or nil when no song has that path.
func DequeueByPath(root *music.FileSystemEntry, path string) *music.FileSystemEntry {
	e := root.Find(filepath.Clean(path))
	if e == nil || e.IsDir {
		return nil
	}
	Dequeue(e)
	return e
}

// FullyEnqueued reports whether dir holds songs and all of them are enqueued.
func FullyEnqueued(dir *music.FileSystemEntry) bool {
	return dir.HasSongDescendant() && !dir.HasDequeuedDescendant()
}

// Reconcile sets the enqueued flag of every song in tree to whether its
// path is in paths, and returns the number of enqueued songs.
func Reconcile(tree *music.FileSystemEntry, paths []string) int {
	set := lo.SliceToMap(paths, func(p string) (string, bool) { return p, true })
	count := 0
	for _, song := range tree.Songs() {
		song.IsEnqueued = set[song.Path]
		if song.IsEnqueued {
			count++
		}
	}
	return count
}
