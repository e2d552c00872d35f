package decoder

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// builtinSource is the reference backend: uncompressed audio decoded once
// into memory and served frame by frame to the output callback. It needs no
// codec beyond the RIFF parser.
type builtinSource struct {
	frames [][2]float64
	pos    int
}

func openBuiltin(f *os.File, _ Options) (beep.StreamSeekCloser, beep.Format, error) {
	s, format, err := wav.Decode(f)
	if err != nil {
		return nil, beep.Format{}, err
	}
	defer s.Close()

	frames := make([][2]float64, 0, s.Len())
	chunk := make([][2]float64, 4096)
	for {
		n, ok := s.Stream(chunk)
		frames = append(frames, chunk[:n]...)
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to buffer wave data: %w", err)
	}
	return &builtinSource{frames: frames}, format, nil
}

// builtinRead copies exactly as many frames as the device asked for, or what
// is left of the buffer, whichever is smaller.
func builtinRead(h beep.StreamSeekCloser, out [][2]float64) (int, error) {
	src := h.(*builtinSource)
	n, _ := src.Stream(out)
	return n, nil
}

func (b *builtinSource) Stream(samples [][2]float64) (int, bool) {
	if b.pos >= len(b.frames) {
		return 0, false
	}
	n := copy(samples, b.frames[b.pos:])
	b.pos += n
	return n, true
}

func (b *builtinSource) Err() error { return nil }

func (b *builtinSource) Len() int { return len(b.frames) }

func (b *builtinSource) Position() int { return b.pos }

func (b *builtinSource) Seek(p int) error {
	if p < 0 || p > len(b.frames) {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, len(b.frames))
	}
	b.pos = p
	return nil
}

func (b *builtinSource) Close() error {
	b.frames = nil
	b.pos = 0
	return nil
}
