//go:build (linux && cgo) || windows || darwin

package output

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// Speaker is the single output device of the process. Its Lock and Unlock
// hold the device mixer, which makes it the fence for swapping the stream
// the device is reading.
type Speaker struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	volume *effects.Volume
}

// NewSpeaker opens the device at rate with a buffer of the given length.
func NewSpeaker(rate beep.SampleRate, buffer time.Duration) (*Speaker, error) {
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, err
	}
	return &Speaker{rate: rate}, nil
}

// SampleRate returns the device rate.
func (s *Speaker) SampleRate() beep.SampleRate { return s.rate }

// Play starts pulling from st. The device keeps calling it until Close.
func (s *Speaker) Play(st beep.Streamer, volume float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = &effects.Volume{Streamer: st, Base: 2, Volume: volume}
	speaker.Play(s.volume)
}

func (s *Speaker) Lock()   { speaker.Lock() }
func (s *Speaker) Unlock() { speaker.Unlock() }

// AdjustVolume changes the volume by delta (in powers of two) and returns
// the new level. Levels at or below MinVolume are silent.
func (s *Speaker) AdjustVolume(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.volume == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	s.volume.Volume = math.Max(MinVolume, math.Min(MaxVolume, s.volume.Volume+delta))
	s.volume.Silent = s.volume.Volume <= MinVolume
	return s.volume.Volume
}

// Volume returns the current level.
func (s *Speaker) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.volume == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return s.volume.Volume
}

// Close stops the device.
func (s *Speaker) Close() {
	speaker.Clear()
	speaker.Close()
}
