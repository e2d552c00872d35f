package music

import (
	"slices"
	"testing"
	"time"
)

func testTree() *FileSystemEntry {
	root := NewDirEntry(0, "/music")
	b := NewDirEntry(1, "/music/B")
	a := NewDirEntry(2, "/music/A")
	root.AddChild(b)
	root.AddChild(a)
	b.AddChild(NewSongEntry(3, "/music/B/song3.flac"))
	a.AddChild(NewSongEntry(4, "/music/A/song2.flac"))
	a.AddChild(NewSongEntry(5, "/music/A/song1.flac"))
	root.AddChild(NewDirEntry(6, "/music/Empty"))
	return root
}

func paths(entries []*FileSystemEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}

func TestFind(t *testing.T) {
	root := testTree()
	if got := root.Find("/music/A/song1.flac"); got == nil || got.ID != 5 {
		t.Fatalf("Find(song1) = %v", got)
	}
	if got := root.Find("/music/A/"); got == nil || got.ID != 2 {
		t.Errorf("Find(A/) = %v", got)
	}
	if got := root.Find("/music/C/x.flac"); got != nil {
		t.Errorf("Find(missing) = %v", got)
	}
	if got := root.FindByID(3); got == nil || got.Path != "/music/B/song3.flac" {
		t.Errorf("FindByID(3) = %v", got)
	}
}

func TestSortByName(t *testing.T) {
	root := testTree()
	root.AddChild(NewSongEntry(7, "/music/Ánother.mp3"))
	root.Sort(SortByName)

	want := []string{
		"/music/A", "/music/A/song1.flac", "/music/A/song2.flac",
		"/music/B", "/music/B/song3.flac", "/music/Empty", "/music/Ánother.mp3",
	}
	var got []string
	root.Walk(func(e *FileSystemEntry) bool {
		if e != root {
			got = append(got, e.Path)
		}
		return true
	})
	if !slices.Equal(got, want) {
		t.Errorf("order = %v\nwant %v", got, want)
	}
}

func TestSortByModified(t *testing.T) {
	root := NewDirEntry(0, "/m")
	old := NewSongEntry(1, "/m/a.mp3")
	old.ModTime = time.Unix(100, 0)
	recent := NewSongEntry(2, "/m/b.mp3")
	recent.ModTime = time.Unix(200, 0)
	root.AddChild(old)
	root.AddChild(recent)

	root.Sort(SortByModified)
	if got := paths(root.Children); !slices.Equal(got, []string{"/m/b.mp3", "/m/a.mp3"}) {
		t.Errorf("modified order = %v", got)
	}
	root.Sort(SortByName)
	if got := paths(root.Children); !slices.Equal(got, []string{"/m/a.mp3", "/m/b.mp3"}) {
		t.Errorf("name order = %v", got)
	}
}

func TestDescendantQueries(t *testing.T) {
	root := testTree()
	a := root.Find("/music/A")
	song1 := root.Find("/music/A/song1.flac")
	empty := root.Find("/music/Empty")

	if !a.HasSongDescendant() || empty.HasSongDescendant() {
		t.Error("HasSongDescendant mismatch")
	}
	if !song1.IsDescendantOf(root) || !song1.IsDescendantOf(a) || a.IsDescendantOf(song1) {
		t.Error("IsDescendantOf mismatch")
	}
	if song1.IsDescendantOf(song1) {
		t.Error("an entry is not its own descendant")
	}
	if !a.HasDequeuedDescendant() {
		t.Error("nothing enqueued yet")
	}
	for _, s := range a.Songs() {
		s.IsEnqueued = true
	}
	if a.HasDequeuedDescendant() {
		t.Error("A fully enqueued")
	}
	if got := root.EnqueuedCount(); got != 2 {
		t.Errorf("EnqueuedCount() = %d, want 2", got)
	}
}
