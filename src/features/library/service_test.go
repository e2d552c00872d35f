package library

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/contre95/soulplay/src/features/config"
	"github.com/contre95/soulplay/src/music"
)

// MockPlaylist hands out a plain playlist, like the player does under its lock.
type MockPlaylist struct {
	pl    *music.PlayList
	edits int
}

func (m *MockPlaylist) EditPlaylist(fn func(pl *music.PlayList)) {
	m.edits++
	fn(m.pl)
}

// MockTreeCache is an in-memory implementation of music.TreeCache
type MockTreeCache struct {
	trees  map[string]*music.FileSystemEntry
	stores int
}

func NewMockTreeCache() *MockTreeCache {
	return &MockTreeCache{trees: map[string]*music.FileSystemEntry{}}
}

func (m *MockTreeCache) LoadTree(_ context.Context, root string) (*music.FileSystemEntry, error) {
	return m.trees[root], nil
}

func (m *MockTreeCache) StoreTree(_ context.Context, tree *music.FileSystemEntry) error {
	m.stores++
	m.trees[tree.Path] = tree
	return nil
}

func newTestService(t *testing.T, root string, cache music.TreeCache) (*Service, *MockPlaylist) {
	t.Helper()
	cfg := config.NewManager(&config.Config{
		LibraryPath: root,
		Library:     config.Library{Extensions: testExtensions, Sort: "name"},
	})
	pl := &MockPlaylist{pl: music.NewPlayList()}
	s := NewService(cfg, cache, pl, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s, pl
}

func TestEnqueueDequeueScenario(t *testing.T) {
	root := writeLibrary(t, "A/song1.flac", "A/song2.flac", "B/song3.flac")
	s, pl := newTestService(t, root, nil)

	a := s.tree.Find(filepath.Join(root, "A"))
	count, err := s.Enqueue(a.ID)
	if err != nil || count != 2 {
		t.Fatalf("Enqueue(A) = %d, %v", count, err)
	}
	want := []string{filepath.Join(root, "A", "song1.flac"), filepath.Join(root, "A", "song2.flac")}
	if got := pl.pl.Paths(); !reflect.DeepEqual(got, want) {
		t.Fatalf("playlist = %v, want %v", got, want)
	}
	if pl.pl.Head().Entry == nil || pl.pl.Head().Entry.Path != want[0] {
		t.Error("playlist node not linked to its tree entry")
	}

	s.DequeuePath(want[0])
	if got := pl.pl.Paths(); !reflect.DeepEqual(got, want[1:]) {
		t.Fatalf("playlist after dequeue = %v", got)
	}
	if !a.HasDequeuedDescendant() || FullyEnqueued(a) {
		t.Error("A should have a dequeued descendant and not be fully enqueued")
	}
}

func TestToggle(t *testing.T) {
	root := writeLibrary(t, "A/1.flac", "A/2.flac")
	s, pl := newTestService(t, root, nil)
	a := s.tree.Find(filepath.Join(root, "A"))

	if n, enq, err := s.Toggle(a.ID); err != nil || n != 2 || !enq {
		t.Fatalf("Toggle() = %d, %v, %v", n, enq, err)
	}
	if n, enq, err := s.Toggle(a.ID); err != nil || n != 2 || enq {
		t.Fatalf("second Toggle() = %d, %v, %v", n, enq, err)
	}
	if pl.pl.Len() != 0 {
		t.Errorf("playlist length = %d, want 0", pl.pl.Len())
	}
	if _, _, err := s.Toggle(9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Toggle(missing) error = %v", err)
	}
}

func TestLoadUsesCacheAndReconciles(t *testing.T) {
	root := writeLibrary(t, "A/1.flac", "A/2.flac")
	cache := NewMockTreeCache()
	first, _ := newTestService(t, root, cache)
	if cache.stores != 1 {
		t.Fatalf("stores = %d, want 1", cache.stores)
	}

	cfg := config.NewManager(&config.Config{LibraryPath: root, Library: config.Library{Extensions: testExtensions}})
	pl := &MockPlaylist{pl: music.NewPlayList()}
	pl.pl.Append(filepath.Join(root, "A", "2.flac"), nil)
	s := NewService(cfg, cache, pl, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cache.stores != 1 {
		t.Error("cached tree was stored again")
	}
	if s.tree != first.tree {
		t.Error("tree not taken from the cache")
	}
	if got := s.tree.EnqueuedCount(); got != 1 {
		t.Errorf("EnqueuedCount() = %d, want 1", got)
	}
	if pl.pl.Head().Entry == nil {
		t.Error("existing node not linked to the tree")
	}
}

func TestEnqueuePathsOutsideLibrary(t *testing.T) {
	root := writeLibrary(t, "A/1.flac")
	other := writeLibrary(t, "x/b.mp3", "x/a.flac", "notes.txt")
	s, pl := newTestService(t, root, nil)

	n, err := s.EnqueuePaths(context.Background(), []string{filepath.Join(root, "A"), other})
	if err != nil {
		t.Fatalf("EnqueuePaths() error = %v", err)
	}
	if n != 3 {
		t.Errorf("EnqueuePaths() = %d, want 3", n)
	}
	want := []string{filepath.Join(root, "A", "1.flac"), filepath.Join(other, "x", "a.flac"), filepath.Join(other, "x", "b.mp3")}
	if got := pl.pl.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("playlist = %v, want %v", got, want)
	}
	if _, err := s.EnqueuePaths(context.Background(), []string{filepath.Join(other, "missing")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestEnqueuePathsSkipsCoveredPaths(t *testing.T) {
	root := writeLibrary(t, "A/1.flac", "A/2.flac")
	other := writeLibrary(t, "x/a.flac", "x/b.mp3")
	s, pl := newTestService(t, root, nil)

	n, err := s.EnqueuePaths(context.Background(), []string{
		filepath.Join(root, "A"),
		filepath.Join(root, "A", "2.flac"),
		filepath.Join(other, "x"),
		other,
		filepath.Join(other, "x", "a.flac"),
	})
	if err != nil {
		t.Fatalf("EnqueuePaths() error = %v", err)
	}
	if n != 4 {
		t.Errorf("EnqueuePaths() = %d, want 4", n)
	}
	want := []string{
		filepath.Join(root, "A", "1.flac"),
		filepath.Join(root, "A", "2.flac"),
		filepath.Join(other, "x", "a.flac"),
		filepath.Join(other, "x", "b.mp3"),
	}
	if got := pl.pl.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("playlist = %v, want %v", got, want)
	}
}

func TestRescanKeepsEnqueuedSongs(t *testing.T) {
	root := writeLibrary(t, "A/1.flac")
	s, pl := newTestService(t, root, nil)
	a := s.tree.Find(filepath.Join(root, "A"))
	if _, err := s.Enqueue(a.ID); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "A", "2.flac"))
	if err := s.Rescan(context.Background(), filepath.Join(root, "A")); err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	song1 := s.tree.Find(filepath.Join(root, "A", "1.flac"))
	song2 := s.tree.Find(filepath.Join(root, "A", "2.flac"))
	if song1 == nil || !song1.IsEnqueued {
		t.Error("enqueued song lost its flag")
	}
	if song2 == nil || song2.IsEnqueued {
		t.Error("new song should not be enqueued")
	}
	if pl.pl.Head().Entry != song1 {
		t.Error("node not relinked to the rescanned entry")
	}
}

func TestEntryView(t *testing.T) {
	root := writeLibrary(t, "A/1.flac", "A/2.flac")
	s, _ := newTestService(t, root, nil)
	a := s.tree.Find(filepath.Join(root, "A"))
	if _, err := s.Enqueue(a.Children[0].ID); err != nil {
		t.Fatal(err)
	}

	v, err := s.Entry(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Children) != 1 || v.Children[0].Children != nil {
		t.Fatalf("depth 1 view = %+v", v)
	}
	if v.EnqueuedCount != 1 || v.Enqueued {
		t.Errorf("root view = %+v", v)
	}
	full, err := s.Entry(a.ID, -1)
	if err != nil || len(full.Children) != 2 {
		t.Errorf("full view = %+v, %v", full, err)
	}
}
