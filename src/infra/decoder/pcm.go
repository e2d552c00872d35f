package decoder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gopxl/beep/v2"
)

// pcmStream reads headerless signed 16-bit little-endian PCM.
type pcmStream struct {
	f         *os.File
	format    beep.Format
	frameSize int
	length    int
	pos       int
	buf       []byte
	err       error
}

func openPCM(f *os.File, opts Options) (beep.StreamSeekCloser, beep.Format, error) {
	format := opts.PCMFormat
	if format.SampleRate <= 0 {
		format = DefaultOptions().PCMFormat
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		return nil, beep.Format{}, fmt.Errorf("unsupported pcm channel count %d", format.NumChannels)
	}
	format.Precision = 2

	info, err := f.Stat()
	if err != nil {
		return nil, beep.Format{}, err
	}
	frameSize := format.NumChannels * 2
	return &pcmStream{
		f:         f,
		format:    format,
		frameSize: frameSize,
		length:    int(info.Size()) / frameSize,
	}, format, nil
}

func (p *pcmStream) Stream(samples [][2]float64) (int, bool) {
	if p.err != nil || p.pos >= p.length {
		return 0, false
	}
	want := min(len(samples), p.length-p.pos)
	need := want * p.frameSize
	if cap(p.buf) < need {
		p.buf = make([]byte, need)
	}
	buf := p.buf[:need]
	read, err := io.ReadFull(p.f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		p.err = err
	}
	n := read / p.frameSize
	for i := 0; i < n; i++ {
		frame := buf[i*p.frameSize:]
		left := float64(int16(binary.LittleEndian.Uint16(frame[0:2]))) / 32768
		right := left
		if p.format.NumChannels == 2 {
			right = float64(int16(binary.LittleEndian.Uint16(frame[2:4]))) / 32768
		}
		samples[i] = [2]float64{left, right}
	}
	p.pos += n
	return n, n > 0
}

func (p *pcmStream) Err() error { return p.err }

func (p *pcmStream) Len() int { return p.length }

func (p *pcmStream) Position() int { return p.pos }

func (p *pcmStream) Seek(frame int) error {
	if frame < 0 || frame > p.length {
		return fmt.Errorf("seek position %d out of range [0, %d]", frame, p.length)
	}
	if _, err := p.f.Seek(int64(frame*p.frameSize), io.SeekStart); err != nil {
		return err
	}
	p.pos = frame
	return nil
}

func (p *pcmStream) Close() error {
	return nil
}
