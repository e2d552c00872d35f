package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/contre95/soulplay/src/features/metrics"
	"github.com/contre95/soulplay/src/music"
)

// Pipeline is the loading buffer the player drives.
type Pipeline interface {
	Preload(path string) uint64
	LoadFirst(ctx context.Context, path string) (*music.SongData, error)
	LoadFinished() bool
	Promote() (*music.SongData, bool)
	StagedSong() *music.SongData
	DiscardStaging()
	Reset()
	SeekLive(pos time.Duration) error
	SetPaused(paused bool)
	EndOfTrack() bool
	LiveSong() *music.SongData
}

// Options tune a Player.
type Options struct {
	SeekStep time.Duration
	Repeat   RepeatMode
	Shuffle  bool
	// Now replaces the clock, for tests.
	Now func() time.Time
	// Rand replaces the shuffle source, for tests.
	Rand *rand.Rand
}

// Player is the playback state machine. Commands may come from any
// goroutine; they are serialized by the player lock, and the pipeline is
// only driven from inside it. Tick must be called periodically (Run does
// so) to promote finished loads, apply coalesced seeks and advance at the
// end of a song.
type Player struct {
	mu       sync.Mutex
	pipeline Pipeline
	playlist *music.PlayList
	session  Session
	timer    *Timer
	notifier Notifier
	metrics  *metrics.Collector
	seekStep time.Duration
	rng      *rand.Rand
}

// NewPlayer creates a stopped player over playlist.
func NewPlayer(pipeline Pipeline, playlist *music.PlayList, notifier Notifier, collector *metrics.Collector, opts Options) *Player {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	if opts.SeekStep <= 0 {
		opts.SeekStep = 5 * time.Second
	}
	p := &Player{
		pipeline: pipeline,
		playlist: playlist,
		timer:    NewTimer(opts.Now),
		notifier: notifier,
		metrics:  collector,
		seekStep: opts.SeekStep,
		rng:      opts.Rand,
	}
	p.session.Repeat = opts.Repeat
	p.session.Shuffle = opts.Shuffle
	collector.PlaybackState(Stopped.String(), allStates...)
	collector.PlaylistLength(playlist.Len())
	return p
}

// Play starts playback from Stopped or resumes from Paused. Starting loads
// the current song synchronously, since there is nothing to play meanwhile.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.play(ctx)
}

func (p *Player) play(ctx context.Context) error {
	s := &p.session
	switch s.State {
	case Playing:
		return nil
	case Paused:
		p.timer.Resume()
		p.pipeline.SetPaused(false)
		p.setState(Playing)
		return nil
	}

	if s.Current == nil {
		if s.Shuffle {
			p.playlist.Shuffle(nil, p.rng)
		}
		s.Current = p.playlist.Head()
	}
	if s.Current == nil {
		return ErrEmptyPlaylist
	}

	song, err := p.pipeline.LoadFirst(ctx, s.Current.Path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", s.Current.Path, err)
	}
	s.TryNext = nil
	s.SkipInProgress = false
	p.pipeline.SetPaused(false)
	p.timer.Start()
	p.setState(Playing)
	p.songChanged(song)
	p.planNext()
	return nil
}

// Pause freezes playback and the elapsed time.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pause()
}

func (p *Player) pause() {
	if p.session.State != Playing {
		return
	}
	p.timer.Pause()
	p.pipeline.SetPaused(true)
	p.setState(Paused)
}

// TogglePause pauses when playing and plays otherwise.
func (p *Player) TogglePause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session.State == Playing {
		p.pause()
		return nil
	}
	return p.play(ctx)
}

// Stop releases both pipeline slots. The current node is kept so a later
// Play starts from it again.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
}

func (p *Player) stop() {
	s := &p.session
	if s.State == Stopped {
		return
	}
	p.pipeline.Reset()
	p.pipeline.SetPaused(false)
	p.timer.Reset()
	s.Next = nil
	s.TryNext = nil
	s.SkipInProgress = false
	s.ClearingErrors = false
	s.errorStreak = 0
	p.clearSeek()
	p.setState(Stopped)
}

// SkipNext moves to the node after the current one, or after the pending
// skip target when skips are pressed in quick succession.
func (p *Player) SkipNext() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.successor(p.skipBase(), false)
	if n == nil {
		return ErrNoSuchSong
	}
	return p.skipTo(n, "next")
}

// SkipPrev moves to the previous node. At the start of the playlist it
// restarts the current song instead.
func (p *Player) SkipPrev() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	base := p.skipBase()
	if base == nil {
		return ErrEmptyPlaylist
	}
	n := base.Prev()
	if n == nil && p.session.Repeat == RepeatList {
		n = p.playlist.Tail()
	}
	if n == nil || n == base {
		if !p.session.SkipInProgress {
			p.requestSeek(0, true)
		}
		return nil
	}
	return p.skipTo(n, "previous")
}

// SkipToID moves to the node with the given id.
func (p *Player) SkipToID(id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipTo(p.playlist.FindByID(id), "id")
}

// SkipToNumber moves to the node at the 1-based position.
func (p *Player) SkipToNumber(number int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipTo(p.playlist.ByNumber(number), "number")
}

// SkipToLast moves to the last node in traversal order.
func (p *Player) SkipToLast() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipTo(p.playlist.Tail(), "last")
}

func (p *Player) skipBase() *music.Node {
	if p.session.SkipInProgress && p.session.TryNext != nil {
		return p.session.TryNext
	}
	return p.session.Current
}

// skipTo records n as the pending target and requests its load. Promotion
// happens on a later tick. A stopped player only moves its current node.
func (p *Player) skipTo(n *music.Node, kind string) error {
	if n == nil {
		return ErrNoSuchSong
	}
	s := &p.session
	p.metrics.Skip(kind)

	if s.State == Stopped {
		s.Current = n
		s.Next = nil
		p.notify(EventSongChanged)
		return nil
	}

	s.TryNext = n
	s.SkipInProgress = true
	p.clearSeek()
	if staged := p.pipeline.StagedSong(); staged == nil || staged.FilePath != n.Path {
		p.pipeline.Preload(n.Path)
	}
	slog.Debug("Skip requested", "kind", kind, "path", n.Path, "id", n.ID)
	return nil
}

// SeekBy moves the position by offset. Repeated calls before the next tick
// add up to a single decoder seek.
func (p *Player) SeekBy(offset time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestSeek(offset, false)
}

// SeekForward seeks by the configured step.
func (p *Player) SeekForward() { p.SeekBy(p.seekStep) }

// SeekBack seeks back by the configured step.
func (p *Player) SeekBack() { p.SeekBy(-p.seekStep) }

// SetPosition moves to an absolute position on the next tick.
func (p *Player) SetPosition(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestSeek(pos, true)
}

func (p *Player) requestSeek(d time.Duration, absolute bool) {
	s := &p.session
	if s.State == Stopped {
		return
	}
	p.metrics.SeekRequested()
	if absolute {
		s.seekPending = d
		s.seekAbsolute = true
	} else {
		s.seekPending += d
	}
	s.seekRequested = true
}

func (p *Player) clearSeek() {
	s := &p.session
	s.seekPending = 0
	s.seekAbsolute = false
	s.seekRequested = false
}

func (p *Player) applySeek() {
	s := &p.session
	target := s.seekPending
	if !s.seekAbsolute {
		target += p.timer.Elapsed()
	}
	p.clearSeek()

	if live := p.pipeline.LiveSong(); live != nil && live.Duration > 0 {
		target = min(target, live.Duration)
	}
	target = max(target, 0)

	if err := p.pipeline.SeekLive(target); err != nil {
		slog.Warn("Seek failed", "position", target, "error", err)
		return
	}
	p.metrics.DecoderSeek()
	p.timer.Set(target)
	p.notify(EventSeeked)
}

// Tick promotes a finished skip, applies the pending seek and advances
// when the live song has ended or could not be loaded.
func (p *Player) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &p.session
	if s.State == Stopped {
		return
	}

	if s.SkipInProgress {
		if p.pipeline.LoadFinished() {
			p.promote(s.TryNext)
		}
		return
	}

	if s.seekRequested {
		p.applySeek()
	}

	live := p.pipeline.LiveSong()
	if p.pipeline.EndOfTrack() || (live != nil && live.HasErrors) {
		p.advance()
	}
}

// advance switches to the planned successor without a skip notice.
func (p *Player) advance() {
	s := &p.session
	if s.Next == nil {
		slog.Info("End of playlist reached")
		p.stop()
		return
	}
	if s.errorStreak > 0 && s.errorStreak >= p.playlist.Len() {
		slog.Warn("No playable song in playlist, stopping", "failures", s.errorStreak)
		p.stop()
		return
	}
	if !p.pipeline.LoadFinished() {
		return
	}
	p.promote(s.Next)
}

func (p *Player) promote(n *music.Node) {
	s := &p.session
	song, ok := p.pipeline.Promote()
	if !ok {
		return
	}
	s.Current = n
	s.TryNext = nil
	s.SkipInProgress = false
	p.clearSeek()
	p.timer.Start()
	if s.State == Paused {
		p.timer.Pause()
	}
	p.songChanged(song)
	p.planNext()
}

// planNext recomputes the successor and preloads it. During a skip only the
// reference is updated; the pending target owns the staging slot.
func (p *Player) planNext() {
	s := &p.session
	s.Next = p.successor(s.Current, true)
	if s.SkipInProgress || s.State == Stopped {
		return
	}
	if s.Next == nil {
		p.pipeline.DiscardStaging()
		return
	}
	if staged := p.pipeline.StagedSong(); staged != nil && staged.FilePath == s.Next.Path {
		return
	}
	p.pipeline.Preload(s.Next.Path)
}

// successor resolves the node after from. RepeatSong only applies to
// automatic advance; a user skip always moves on.
func (p *Player) successor(from *music.Node, auto bool) *music.Node {
	if from == nil {
		return p.playlist.Head()
	}
	if auto && p.session.Repeat == RepeatSong {
		return from
	}
	if n := from.Next(); n != nil {
		return n
	}
	if p.session.Repeat == RepeatList {
		return p.playlist.Head()
	}
	return nil
}

func (p *Player) songChanged(song *music.SongData) {
	s := &p.session
	p.notify(EventSongChanged)
	if song == nil || !song.HasErrors {
		s.ClearingErrors = false
		s.errorStreak = 0
		return
	}
	s.errorStreak++
	if !s.ClearingErrors {
		s.ClearingErrors = true
		p.notify(EventLoadError)
	}
}

func (p *Player) setState(state State) {
	p.session.State = state
	p.metrics.PlaybackState(state.String(), allStates...)
	p.notify(EventStateChanged)
}

func (p *Player) notify(event Event) {
	p.notifier.Notify(event, p.status())
}

// ToggleRepeat cycles Off, Song, List.
func (p *Player) ToggleRepeat() RepeatMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Repeat = (p.session.Repeat + 1) % 3
	p.planNext()
	p.notify(EventOptions)
	return p.session.Repeat
}

// ToggleShuffle turns shuffle on with the current node first, or restores
// insertion order.
func (p *Player) ToggleShuffle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := &p.session
	s.Shuffle = !s.Shuffle
	if s.Shuffle {
		p.playlist.Shuffle(s.Current, p.rng)
	} else {
		p.playlist.Unshuffle()
	}
	p.planNext()
	p.notify(EventOptions)
	return s.Shuffle
}

// Reshuffle draws a new order. The current node stays current and moves to
// the front.
func (p *Player) Reshuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playlist.Shuffle(p.session.Current, p.rng)
	p.planNext()
	p.notify(EventOptions)
}

// EditPlaylist runs fn with exclusive access to the playlist and then fixes
// the session references. When the current node was removed the live song
// keeps playing and the playlist continues from its head.
func (p *Player) EditPlaylist(fn func(pl *music.PlayList)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.playlist)

	s := &p.session
	if s.Current != nil && p.playlist.Number(s.Current) == 0 {
		s.Current = nil
	}
	if s.TryNext != nil && p.playlist.Number(s.TryNext) == 0 {
		s.TryNext = nil
		s.SkipInProgress = false
		p.pipeline.DiscardStaging()
	}
	p.metrics.PlaylistLength(p.playlist.Len())
	p.planNext()
}

// Paths returns the playlist paths in traversal order.
func (p *Player) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playlist.Paths()
}

// QueueItem is one playlist node as seen by remote surfaces.
type QueueItem struct {
	ID      int    `json:"id"`
	Number  int    `json:"number"`
	Path    string `json:"path"`
	Current bool   `json:"current"`
}

// Queue returns the playlist in traversal order.
func (p *Player) Queue() []QueueItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	nodes := p.playlist.Nodes()
	items := make([]QueueItem, len(nodes))
	for i, n := range nodes {
		items[i] = QueueItem{ID: n.ID, Number: i + 1, Path: n.Path, Current: n == p.session.Current}
	}
	return items
}

// Session returns a copy of the session flags.
func (p *Player) Session() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Status returns the current view of the session.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status()
}

func (p *Player) status() Status {
	s := &p.session
	st := Status{
		State:          s.State.String(),
		Repeat:         s.Repeat.String(),
		Shuffle:        s.Shuffle,
		Elapsed:        p.timer.Elapsed(),
		PlaylistLength: p.playlist.Len(),
	}
	if s.Current != nil {
		st.Number = p.playlist.Number(s.Current)
		st.NodeID = s.Current.ID
		st.Path = s.Current.Path
	}
	if s.State == Stopped {
		return st
	}
	song := p.pipeline.LiveSong()
	if song == nil {
		return st
	}
	st.TrackID = song.TrackID
	st.Path = song.FilePath
	st.Title = song.Title()
	st.Duration = song.Duration
	st.CoverPath = song.CoverArtPath
	st.HasErrors = song.HasErrors
	if song.Metadata != nil {
		st.Artist = song.Metadata.Artist
		st.Album = song.Metadata.Album
	}
	if st.Duration > 0 {
		st.Elapsed = min(st.Elapsed, st.Duration)
	}
	return st
}

// Run ticks the player until ctx is done.
func (p *Player) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		}
	}
}
