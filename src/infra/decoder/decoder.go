package decoder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
)

var (
	ErrUnsupportedCodec = errors.New("unsupported codec")
	ErrClosed           = errors.New("decoder closed")
)

// Options tune backends that cannot discover their own stream format.
type Options struct {
	// PCMFormat describes headerless PCM files (signed 16-bit little endian).
	PCMFormat beep.Format
}

// DefaultOptions returns CD-quality raw PCM settings.
func DefaultOptions() Options {
	return Options{PCMFormat: beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}}
}

// operations is the fixed operation table of one backend kind.
type operations struct {
	open     func(f *os.File, opts Options) (beep.StreamSeekCloser, beep.Format, error)
	read     func(h beep.StreamSeekCloser, frames [][2]float64) (int, error)
	seek     func(h beep.StreamSeekCloser, frame int) error
	teardown func(h beep.StreamSeekCloser) error
}

var table = [...]operations{
	KindNone:    {open: openUnsupported(KindNone)},
	KindPCM:     {open: openPCM, read: streamRead, seek: streamSeek, teardown: streamClose},
	KindBuiltin: {open: openBuiltin, read: builtinRead, seek: streamSeek, teardown: streamClose},
	KindMP3:     {open: openMP3, read: streamRead, seek: streamSeek, teardown: streamClose},
	KindFLAC:    {open: openFLAC, read: streamRead, seek: streamSeek, teardown: streamClose},
	KindVorbis:  {open: openVorbis, read: streamRead, seek: streamSeek, teardown: streamClose},
	KindOpus:    {open: openUnsupported(KindOpus)},
	KindM4A:     {open: openUnsupported(KindM4A)},
	KindWebM:    {open: openUnsupported(KindWebM)},
}

func opsFor(kind Kind) *operations {
	if kind < 0 || int(kind) >= len(table) {
		return &table[KindNone]
	}
	return &table[kind]
}

// Playable reports whether kind has a working backend.
func (k Kind) Playable() bool {
	return opsFor(k).read != nil
}

// Decoder is an open stream of one backend kind. Callers use it without
// knowing the backend: every call is routed through the kind's table entry.
//
// Read is meant for the output callback and Seek for the control loop; the
// caller serializes the two (the output device lock does that).
type Decoder struct {
	kind     Kind
	path     string
	file     *os.File
	handle   beep.StreamSeekCloser
	format   beep.Format
	teardown func(beep.StreamSeekCloser) error

	eof    bool
	err    error
	closed bool
}

// Open detects the kind of path and opens it.
func Open(path string, opts Options) (*Decoder, error) {
	return OpenKind(path, Detect(path), opts)
}

// OpenKind opens path with an explicit backend.
func OpenKind(path string, kind Kind, opts Options) (*Decoder, error) {
	ops := opsFor(kind)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	handle, format, err := ops.open(f, opts)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open %s decoder for %s: %w", kind, path, err)
	}
	return &Decoder{
		kind:     kind,
		path:     path,
		file:     f,
		handle:   handle,
		format:   format,
		teardown: ops.teardown,
	}, nil
}

// Kind returns the backend tag.
func (d *Decoder) Kind() Kind { return d.kind }

// Path returns the file the decoder reads.
func (d *Decoder) Path() string { return d.path }

// Format returns the stream format.
func (d *Decoder) Format() beep.Format { return d.format }

// Len returns the stream length in frames.
func (d *Decoder) Len() int {
	if d.closed {
		return 0
	}
	return d.handle.Len()
}

// Position returns the current frame.
func (d *Decoder) Position() int {
	if d.closed {
		return 0
	}
	return d.handle.Position()
}

// Duration returns the stream length as time.
func (d *Decoder) Duration() time.Duration {
	return d.format.SampleRate.D(d.Len())
}

// EOF reports whether the stream ran out, either naturally or by a read
// failure.
func (d *Decoder) EOF() bool { return d.eof }

// Err returns the read failure that ended the stream, if any.
func (d *Decoder) Err() error { return d.err }

// Read fills frames and returns how many were produced. It never produces
// more than len(frames); a short read zero-fills the rest and marks the end
// of the stream. A failing backend is treated the same way.
func (d *Decoder) Read(frames [][2]float64) int {
	if d.closed || d.eof {
		clear(frames)
		return 0
	}
	n, err := opsFor(d.kind).read(d.handle, frames)
	if n > len(frames) {
		n = len(frames)
	}
	if err != nil {
		d.err = err
		slog.Warn("Decoder read failed, ending stream", "path", d.path, "kind", d.kind, "error", err)
	}
	if n < len(frames) || err != nil {
		d.eof = true
		clear(frames[n:])
	}
	return n
}

// Stream adapts Read to beep.Streamer.
func (d *Decoder) Stream(samples [][2]float64) (int, bool) {
	n := d.Read(samples)
	return n, n > 0
}

// Seek moves to frame, clamped to the stream bounds.
func (d *Decoder) Seek(frame int) error {
	if d.closed {
		return ErrClosed
	}
	if frame < 0 {
		frame = 0
	}
	if l := d.handle.Len(); frame > l {
		frame = l
	}
	if err := opsFor(d.kind).seek(d.handle, frame); err != nil {
		return fmt.Errorf("failed to seek %s to frame %d: %w", d.path, frame, err)
	}
	d.eof = false
	return nil
}

// Close releases the backend through its teardown entry. Closing twice is a
// no-op.
func (d *Decoder) Close() error {
	if d == nil || d.closed {
		return nil
	}
	d.closed = true
	var err error
	if d.teardown != nil {
		err = d.teardown(d.handle)
	}
	if cerr := d.file.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}

func openUnsupported(kind Kind) func(*os.File, Options) (beep.StreamSeekCloser, beep.Format, error) {
	return func(*os.File, Options) (beep.StreamSeekCloser, beep.Format, error) {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, kind)
	}
}

func openMP3(f *os.File, _ Options) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(f)
}

func openFLAC(f *os.File, _ Options) (beep.StreamSeekCloser, beep.Format, error) {
	return flac.Decode(f)
}

func openVorbis(f *os.File, _ Options) (beep.StreamSeekCloser, beep.Format, error) {
	return vorbis.Decode(f)
}

// streamRead keeps pulling until frames is full or the backend is drained.
func streamRead(h beep.StreamSeekCloser, frames [][2]float64) (int, error) {
	filled := 0
	for filled < len(frames) {
		n, ok := h.Stream(frames[filled:])
		filled += n
		if !ok || n == 0 {
			break
		}
	}
	return filled, h.Err()
}

func streamSeek(h beep.StreamSeekCloser, frame int) error {
	return h.Seek(frame)
}

func streamClose(h beep.StreamSeekCloser) error {
	if h == nil {
		return nil
	}
	if err := h.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
