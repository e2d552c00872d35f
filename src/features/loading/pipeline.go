package loading

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/contre95/soulplay/src/features/metrics"
	"github.com/contre95/soulplay/src/infra/decoder"
	"github.com/contre95/soulplay/src/music"
	"github.com/gopxl/beep/v2"
)

const resampleQuality = 4

// SongLoader produces a SongData for a path without failing and frees it
// again when its buffer is recycled.
type SongLoader interface {
	Load(ctx context.Context, path string) *music.SongData
	Unload(slot *music.SongSlot) bool
}

// Fence is held by the output device while it pulls samples. Holding it
// guarantees the device is not inside the live stream.
type Fence interface {
	Lock()
	Unlock()
}

// SlotState is the lifecycle position of one buffer.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotStaging
	SlotLive
	SlotStale
)

func (s SlotState) String() string {
	switch s {
	case SlotStaging:
		return "staging"
	case SlotLive:
		return "live"
	case SlotStale:
		return "stale"
	default:
		return "empty"
	}
}

type slot struct {
	song       music.SongSlot
	dec        *decoder.Decoder
	stream     beep.Streamer
	state      SlotState
	path       string
	generation uint64
}

// Pipeline is the two-slot loading buffer. One slot is live and feeds the
// output device; the other is filled in the background with the next song.
//
// The control loop calls every exported method except Streamer's Stream,
// which the output device calls under the Fence. The device only ever sees
// the live pointer, never the staging slot or the mutex.
type Pipeline struct {
	loader  SongLoader
	opts    decoder.Options
	rate    beep.SampleRate
	fence   Fence
	metrics *metrics.Collector

	mu         sync.Mutex
	slots      [2]slot
	liveIdx    int
	noLive     bool
	target     string
	generation uint64

	loading      atomic.Bool
	loadFinished atomic.Bool
	endOfTrack   atomic.Bool
	paused       atomic.Bool
	live         atomic.Pointer[slot]

	workers sync.WaitGroup
}

// NewPipeline creates an empty pipeline producing audio at rate.
func NewPipeline(loader SongLoader, opts decoder.Options, rate beep.SampleRate, fence Fence, collector *metrics.Collector) *Pipeline {
	if fence == nil {
		fence = &sync.Mutex{}
	}
	return &Pipeline{
		loader:  loader,
		opts:    opts,
		rate:    rate,
		fence:   fence,
		metrics: collector,
		noLive:  true,
	}
}

func (p *Pipeline) stagingIdx() int {
	return 1 - p.liveIdx
}

// Preload starts loading path into the staging slot and returns the request
// generation. A load already in flight is never interrupted: its result is
// discarded when it lands and the worker moves on to the newest target.
func (p *Pipeline) Preload(path string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.generation++
	gen := p.generation
	p.target = path

	if p.loading.Load() {
		slog.Debug("Preload redirected", "path", path, "generation", gen)
		return gen
	}

	idx := p.stagingIdx()
	if p.loadFinished.Load() {
		slog.Debug("Discarding unpromoted staging slot", "path", p.slots[idx].path)
		p.releaseSlot(idx)
		p.loadFinished.Store(false)
		p.metrics.PreloadDiscarded()
	}
	p.startWorker(idx, path, gen)
	return gen
}

// startWorker must be called with mu held.
func (p *Pipeline) startWorker(idx int, path string, gen uint64) {
	p.slots[idx].state = SlotStaging
	p.slots[idx].path = path
	p.loading.Store(true)
	p.loadFinished.Store(false)
	slog.Debug("Preload started", "path", path, "generation", gen, "slot", idx)

	p.workers.Add(1)
	go func() {
		defer p.workers.Done()
		p.work(idx, path, gen)
	}()
}

func (p *Pipeline) work(idx int, path string, gen uint64) {
	song, took := timedLoad(context.Background(), p.loader, path)
	var dec *decoder.Decoder
	if !song.HasErrors {
		var err error
		dec, err = decoder.Open(path, p.opts)
		if err != nil {
			slog.Warn("Failed to open decoder", "path", path, "error", err)
			song.HasErrors = true
		}
	}
	p.metrics.SongLoaded(took, song.HasErrors)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation && p.target != path {
		slog.Debug("Preload superseded", "path", path, "generation", gen, "current", p.generation)
		dec.Close()
		discard := music.SongSlot{}
		discard.Put(song)
		p.loader.Unload(&discard)
		p.slots[idx].state = SlotEmpty
		p.slots[idx].path = ""
		p.metrics.PreloadDiscarded()
		if p.target == "" {
			p.loading.Store(false)
			return
		}
		p.startWorker(idx, p.target, p.generation)
		return
	}

	s := &p.slots[idx]
	s.song.Put(song)
	s.dec = dec
	s.stream = p.streamFor(dec)
	s.generation = p.generation
	p.loading.Store(false)
	p.loadFinished.Store(true)
	slog.Debug("Preload finished", "path", path, "generation", s.generation, "errors", song.HasErrors)
}

func (p *Pipeline) streamFor(dec *decoder.Decoder) beep.Streamer {
	if dec == nil {
		return nil
	}
	if src := dec.Format().SampleRate; src != p.rate && src > 0 && p.rate > 0 {
		return beep.Resample(resampleQuality, src, p.rate, dec)
	}
	return dec
}

// LoadFirst loads path synchronously and makes it live. It is meant for the
// start of a session when there is nothing to play while waiting.
func (p *Pipeline) LoadFirst(ctx context.Context, path string) (*music.SongData, error) {
	p.Preload(path)
	if err := p.Finish(ctx); err != nil {
		return nil, err
	}
	song, _ := p.Promote()
	return song, nil
}

// Finish waits until the staging slot holds a finished load.
func (p *Pipeline) Finish(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for !p.loadFinished.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LoadFinished reports whether a staged song is ready for promotion.
func (p *Pipeline) LoadFinished() bool { return p.loadFinished.Load() }

// Loading reports whether a background load is in flight.
func (p *Pipeline) Loading() bool { return p.loading.Load() }

// Promote makes the finished staging slot live. The previous live slot
// turns stale and is released once the fence proves the device has let go
// of it. It reports false when there is nothing to promote.
func (p *Pipeline) Promote() (*music.SongData, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loadFinished.Load() {
		return nil, false
	}
	next := p.stagingIdx()
	prev := p.liveIdx
	hadLive := !p.noLive

	p.fence.Lock()
	p.live.Store(&p.slots[next])
	p.endOfTrack.Store(false)
	p.fence.Unlock()

	p.slots[next].state = SlotLive
	p.liveIdx = next
	p.noLive = false
	p.loadFinished.Store(false)
	if hadLive {
		p.slots[prev].state = SlotStale
		p.releaseSlot(prev)
	}
	p.metrics.SlotPromoted()

	song := p.slots[next].song.Get()
	slog.Debug("Slot promoted", "path", p.slots[next].path, "slot", next)
	return song, true
}

// releaseSlot closes the decoder and frees the song of slot idx. mu must be
// held and the slot must not be live.
func (p *Pipeline) releaseSlot(idx int) {
	s := &p.slots[idx]
	if err := s.dec.Close(); err != nil {
		slog.Debug("Decoder close failed", "path", s.path, "error", err)
	}
	s.dec = nil
	s.stream = nil
	p.loader.Unload(&s.song)
	s.state = SlotEmpty
	s.path = ""
}

// DiscardStaging drops the staged result and any pending target. An
// in-flight load finishes and is thrown away.
func (p *Pipeline) DiscardStaging() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.target = ""
	if p.loadFinished.Load() {
		p.releaseSlot(p.stagingIdx())
		p.loadFinished.Store(false)
	}
}

// Reset releases both slots. Audio goes silent until the next LoadFirst.
func (p *Pipeline) Reset() {
	p.DiscardStaging()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noLive {
		return
	}
	p.fence.Lock()
	p.live.Store(nil)
	p.fence.Unlock()
	p.slots[p.liveIdx].state = SlotStale
	p.releaseSlot(p.liveIdx)
	p.noLive = true
	p.endOfTrack.Store(false)
}

// Close resets the pipeline and waits for background loads to return.
func (p *Pipeline) Close() {
	p.Reset()
	p.workers.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadFinished.Load() {
		p.releaseSlot(p.stagingIdx())
		p.loadFinished.Store(false)
	}
}

// LiveSong returns the song feeding the output, or nil.
func (p *Pipeline) LiveSong() *music.SongData {
	s := p.live.Load()
	if s == nil {
		return nil
	}
	return s.song.Get()
}

// LivePath returns the path of the live slot, or "".
func (p *Pipeline) LivePath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noLive {
		return ""
	}
	return p.slots[p.liveIdx].path
}

// StagedSong returns the finished staging song awaiting promotion, or nil.
func (p *Pipeline) StagedSong() *music.SongData {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loadFinished.Load() {
		return nil
	}
	return p.slots[p.stagingIdx()].song.Get()
}

// States returns the state of both slots, for diagnostics.
func (p *Pipeline) States() [2]SlotState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return [2]SlotState{p.slots[0].state, p.slots[1].state}
}

// SeekLive moves the live decoder to pos, clamped to the song bounds.
func (p *Pipeline) SeekLive(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noLive {
		return nil
	}
	s := &p.slots[p.liveIdx]
	if s.dec == nil {
		return nil
	}
	p.fence.Lock()
	defer p.fence.Unlock()
	if err := s.dec.Seek(s.dec.Format().SampleRate.N(pos)); err != nil {
		return err
	}
	// A fresh resampler drops samples buffered from the old position.
	s.stream = p.streamFor(s.dec)
	p.endOfTrack.Store(false)
	return nil
}

// LivePosition returns the decoder position of the live song.
func (p *Pipeline) LivePosition() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.noLive || p.slots[p.liveIdx].dec == nil {
		return 0
	}
	dec := p.slots[p.liveIdx].dec
	p.fence.Lock()
	defer p.fence.Unlock()
	return dec.Format().SampleRate.D(dec.Position())
}

// SetPaused silences the output without touching the decoder position.
func (p *Pipeline) SetPaused(paused bool) { p.paused.Store(paused) }

// EndOfTrack reports whether the live stream ran out since the last
// promotion or seek.
func (p *Pipeline) EndOfTrack() bool { return p.endOfTrack.Load() }

// Streamer returns the streamer the output device should play.
func (p *Pipeline) Streamer() beep.Streamer { return liveStreamer{p} }

type liveStreamer struct{ p *Pipeline }

// Stream never blocks and never fails; silence fills whatever the live
// song cannot.
func (l liveStreamer) Stream(samples [][2]float64) (int, bool) {
	p := l.p
	s := p.live.Load()
	if s == nil || s.stream == nil || p.paused.Load() || p.endOfTrack.Load() {
		clear(samples)
		return len(samples), true
	}
	n, ok := s.stream.Stream(samples)
	if n < len(samples) || !ok {
		clear(samples[n:])
		p.endOfTrack.Store(true)
	}
	return len(samples), true
}

func (l liveStreamer) Err() error { return nil }
