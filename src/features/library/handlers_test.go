package library

import (
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestDequeuePathRoute(t *testing.T) {
	root := writeLibrary(t, "A/1.flac", "A/2.flac")
	s, pl := newTestService(t, root, nil)
	a := s.tree.Find(filepath.Join(root, "A"))
	if _, err := s.Enqueue(a.ID); err != nil {
		t.Fatal(err)
	}
	pl.pl.Append("/elsewhere/x.mp3", nil)

	app := fiber.New()
	RegisterRoutes(app, s)
	remove := func(path string) int {
		t.Helper()
		req := httptest.NewRequest("DELETE", "/library/queue?path="+url.QueryEscape(path), nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("DELETE /library/queue: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	first := filepath.Join(root, "A", "1.flac")
	if code := remove(first); code != fiber.StatusNoContent {
		t.Fatalf("DELETE %s = %d, want 204", first, code)
	}
	if s.tree.Find(first).IsEnqueued {
		t.Error("library song still flagged as enqueued")
	}
	if code := remove("/elsewhere/x.mp3"); code != fiber.StatusNoContent {
		t.Fatalf("DELETE outside path = %d, want 204", code)
	}
	want := []string{filepath.Join(root, "A", "2.flac")}
	if got := pl.pl.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("playlist = %v, want %v", got, want)
	}
	if code := remove(""); code != fiber.StatusBadRequest {
		t.Errorf("DELETE without path = %d, want 400", code)
	}
}
