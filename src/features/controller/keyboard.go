package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/contre95/soulplay/src/features/playback"
	"golang.org/x/term"
)

// Player is the part of the state machine driven from the keyboard.
type Player interface {
	Play(ctx context.Context) error
	TogglePause(ctx context.Context) error
	Stop()
	SkipNext() error
	SkipPrev() error
	SkipToNumber(number int) error
	SkipToLast() error
	SeekForward()
	SeekBack()
	SetPosition(pos time.Duration)
	ToggleRepeat() playback.RepeatMode
	ToggleShuffle() bool
	Reshuffle()
	Status() playback.Status
}

// Volume is the output gain control.
type Volume interface {
	AdjustVolume(delta float64) float64
}

// Keeper adds the current song to the special playlist.
type Keeper interface {
	KeepCurrent(ctx context.Context) (string, bool, error)
}

// Keyboard maps single keys to player commands. Digits accumulate a song
// number which g (or enter) jumps to.
type Keyboard struct {
	player     Player
	volume     Volume
	keeper     Keeper
	volumeStep float64
	out        io.Writer

	number string
	escape []byte
}

// NewKeyboard creates a keyboard controller. volume and keeper may be nil.
func NewKeyboard(player Player, volume Volume, keeper Keeper, volumeStep float64, out io.Writer) *Keyboard {
	if out == nil {
		out = io.Discard
	}
	return &Keyboard{player: player, volume: volume, keeper: keeper, volumeStep: volumeStep, out: out}
}

// Help lists the key bindings.
const Help = "space=pause/resume enter=play s=stop n/p=next/prev G=last 0-9 g=jump " +
	"l/h=seek 0=restart r=repeat z=shuffle Z=reshuffle +/-=volume k=keep q=quit"

// Run puts the terminal in raw mode and handles keys until q is pressed or
// ctx is done. Without a terminal it only waits for ctx.
func (k *Keyboard) Run(ctx context.Context, in *os.File) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		slog.Info("Standard input is not a terminal, keyboard control disabled")
		<-ctx.Done()
		return nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, state)
	fmt.Fprint(k.out, Help+"\r\n")
	return k.Read(ctx, in)
}

// Read handles keys from r. It returns nil when q is pressed or r ends.
func (k *Keyboard) Read(ctx context.Context, r io.Reader) error {
	keys := make(chan byte)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := r.Read(buf); err != nil {
				errs <- err
				return
			}
			select {
			case keys <- buf[0]:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case key := <-keys:
			if k.Handle(ctx, key) {
				return nil
			}
		}
	}
}

// Handle runs the command bound to key and reports whether it asks to quit.
func (k *Keyboard) Handle(ctx context.Context, key byte) bool {
	if quit, done := k.handleEscape(ctx, key); done {
		return quit
	}

	var err error
	switch {
	case key >= '0' && key <= '9':
		if key == '0' && k.number == "" {
			k.player.SetPosition(0)
			break
		}
		k.number += string(key)
		return false
	case key == 'g' || key == '\r' || key == '\n':
		if k.number != "" {
			n, _ := strconv.Atoi(k.number)
			err = k.player.SkipToNumber(n)
		} else if key != 'g' {
			err = k.player.Play(ctx)
		}
	case key == ' ':
		err = k.player.TogglePause(ctx)
	case key == 's':
		k.player.Stop()
	case key == 'n':
		err = k.player.SkipNext()
	case key == 'p':
		err = k.player.SkipPrev()
	case key == 'G':
		err = k.player.SkipToLast()
	case key == 'l':
		k.player.SeekForward()
	case key == 'h':
		k.player.SeekBack()
	case key == 'r':
		k.player.ToggleRepeat()
	case key == 'z':
		k.player.ToggleShuffle()
	case key == 'Z':
		k.player.Reshuffle()
	case key == '+' || key == '=':
		k.adjustVolume(k.volumeStep)
	case key == '-':
		k.adjustVolume(-k.volumeStep)
	case key == 'k':
		if k.keeper != nil {
			_, _, err = k.keeper.KeepCurrent(ctx)
		}
	case key == 'q' || key == 3: // ctrl-c arrives as a byte in raw mode
		return true
	}
	k.number = ""

	if err != nil {
		slog.Warn("Command failed", "key", string(key), "error", err)
	}
	k.render()
	return false
}

// handleEscape consumes ESC [ C/D arrow sequences as seeks and ESC [ A/B as
// volume changes.
func (k *Keyboard) handleEscape(ctx context.Context, key byte) (quit bool, done bool) {
	switch {
	case len(k.escape) == 0 && key == 0x1b:
		k.escape = append(k.escape, key)
		return false, true
	case len(k.escape) == 1:
		if key != '[' {
			k.escape = nil
			return k.Handle(ctx, key), true
		}
		k.escape = append(k.escape, key)
		return false, true
	case len(k.escape) == 2:
		k.escape = nil
		switch key {
		case 'C':
			k.player.SeekForward()
		case 'D':
			k.player.SeekBack()
		case 'A':
			k.adjustVolume(k.volumeStep)
		case 'B':
			k.adjustVolume(-k.volumeStep)
		}
		k.render()
		return false, true
	}
	return false, false
}

func (k *Keyboard) adjustVolume(delta float64) {
	if k.volume != nil {
		k.volume.AdjustVolume(delta)
	}
}

func (k *Keyboard) render() {
	fmt.Fprint(k.out, "\r\x1b[K"+StatusLine(k.player.Status())+"\r\n")
}

// StatusLine formats st for a single terminal line.
func StatusLine(st playback.Status) string {
	if st.PlaylistLength == 0 {
		return "[empty playlist]"
	}
	title := st.Title
	if st.Artist != "" {
		title = st.Artist + " - " + title
	}
	flags := ""
	if st.Repeat != playback.RepeatOff.String() {
		flags += " repeat:" + st.Repeat
	}
	if st.Shuffle {
		flags += " shuffle"
	}
	if st.HasErrors {
		flags += " !"
	}
	return fmt.Sprintf("[%s] %d/%d %s %s/%s%s",
		st.State, st.Number, st.PlaylistLength, title,
		clock(st.Elapsed), clock(st.Duration), flags)
}

func clock(d time.Duration) string {
	s := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
