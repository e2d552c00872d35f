package controller

import (
	"fmt"
	"io"
	"sync"

	"github.com/contre95/soulplay/src/features/playback"
)

// Display prints the status line whenever the session changes. It
// implements playback.Notifier.
type Display struct {
	mu  sync.Mutex
	out io.Writer
}

func NewDisplay(out io.Writer) *Display {
	return &Display{out: out}
}

func (d *Display) Notify(event playback.Event, status playback.Status) {
	if event == playback.EventSeeked {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	line := StatusLine(status)
	if event == playback.EventLoadError {
		line = "[skipping unreadable song] " + status.Path
	}
	fmt.Fprint(d.out, "\r\x1b[K"+line+"\r\n")
}
