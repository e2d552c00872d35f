// Package decodertest writes small audio fixtures for tests.
package decodertest

import (
	"encoding/binary"
	"math"
	"os"
	"testing"
)

// WriteWAV writes a 16-bit stereo sine wave of the given number of frames.
func WriteWAV(t testing.TB, path string, sampleRate, frames int) {
	t.Helper()
	if err := os.WriteFile(path, WAV(sampleRate, frames), 0o644); err != nil {
		t.Fatalf("failed to write wav fixture: %v", err)
	}
}

// WAV returns the bytes of a 16-bit stereo sine wave.
func WAV(sampleRate, frames int) []byte {
	const channels, bits = 2, 16
	dataSize := frames * channels * bits / 8
	buf := make([]byte, 0, 44+dataSize)
	le := binary.LittleEndian

	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint16(buf, 1)
	buf = le.AppendUint16(buf, channels)
	buf = le.AppendUint32(buf, uint32(sampleRate))
	buf = le.AppendUint32(buf, uint32(sampleRate*channels*bits/8))
	buf = le.AppendUint16(buf, channels*bits/8)
	buf = le.AppendUint16(buf, bits)
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, uint32(dataSize))
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)) * 8000)
		buf = le.AppendUint16(buf, uint16(v))
		buf = le.AppendUint16(buf, uint16(v))
	}
	return buf
}

// WritePCM writes headerless 16-bit stereo PCM of the given number of frames.
func WritePCM(t testing.TB, path string, frames int) {
	t.Helper()
	wav := WAV(44100, frames)
	if err := os.WriteFile(path, wav[44:], 0o644); err != nil {
		t.Fatalf("failed to write pcm fixture: %v", err)
	}
}
