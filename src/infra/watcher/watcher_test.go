package watcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestCollapse(t *testing.T) {
	got := collapse([]string{"/m/a/x", "/m/b", "/m/a", "/m/ab", "/m/a/y/z"})
	want := []string{"/m/a", "/m/ab", "/m/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collapse() = %v, want %v", got, want)
	}
}

func TestWatcherEmitsDebouncedDirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "album")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	events := make(chan FileEvent, 1)
	w, err := NewWatcher(events, []string{".flac", ".mp3"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx, root); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer w.Stop()

	for _, name := range []string{"one.flac", "two.FLAC", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(sub, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case ev := <-events:
		if !reflect.DeepEqual(ev.Dirs, []string{sub}) {
			t.Errorf("Dirs = %v, want [%s]", ev.Dirs, sub)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event emitted")
	}
}
