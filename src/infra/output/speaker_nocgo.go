//go:build linux && !cgo

package output

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries on Linux.
const AudioAvailable = false

// Speaker discards audio in builds without a sound backend. Playback
// control keeps working so the remote surface stays usable.
type Speaker struct {
	sync.Mutex
	rate   beep.SampleRate
	volume float64
}

// NewSpeaker returns a silent device.
func NewSpeaker(rate beep.SampleRate, _ time.Duration) (*Speaker, error) {
	return &Speaker{rate: rate}, nil
}

func (s *Speaker) SampleRate() beep.SampleRate { return s.rate }

func (s *Speaker) Play(_ beep.Streamer, volume float64) { s.volume = volume }

func (s *Speaker) AdjustVolume(delta float64) float64 {
	s.volume = max(MinVolume, min(MaxVolume, s.volume+delta))
	return s.volume
}

func (s *Speaker) Volume() float64 { return s.volume }

func (s *Speaker) Close() {}
