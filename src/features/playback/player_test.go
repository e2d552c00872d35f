package playback

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/contre95/soulplay/src/music"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// fakePipeline finishes every preload at once unless manual is set.
type fakePipeline struct {
	songs    map[string]*music.SongData
	manual   bool
	pending  string
	live     *music.SongData
	staged   *music.SongData
	finished bool
	eot      bool
	paused   bool

	loadFirst []string
	preloads  []string
	seeks     []time.Duration
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{songs: map[string]*music.SongData{}}
}

func (f *fakePipeline) song(path string) *music.SongData {
	if s, ok := f.songs[path]; ok {
		return s
	}
	return &music.SongData{FilePath: path, Duration: 100 * time.Second, Metadata: &music.Metadata{Title: path}}
}

func (f *fakePipeline) Preload(path string) uint64 {
	f.preloads = append(f.preloads, path)
	f.staged, f.finished = nil, false
	f.pending = path
	if !f.manual {
		f.complete()
	}
	return uint64(len(f.preloads))
}

func (f *fakePipeline) complete() {
	f.staged = f.song(f.pending)
	f.finished = true
}

func (f *fakePipeline) LoadFirst(_ context.Context, path string) (*music.SongData, error) {
	f.loadFirst = append(f.loadFirst, path)
	f.staged, f.finished = nil, false
	f.live = f.song(path)
	f.eot = false
	return f.live, nil
}

func (f *fakePipeline) LoadFinished() bool { return f.finished }

func (f *fakePipeline) Promote() (*music.SongData, bool) {
	if !f.finished {
		return nil, false
	}
	f.live, f.staged, f.finished, f.eot = f.staged, nil, false, false
	return f.live, true
}

func (f *fakePipeline) StagedSong() *music.SongData {
	if !f.finished {
		return nil
	}
	return f.staged
}

func (f *fakePipeline) DiscardStaging() { f.staged, f.finished = nil, false }

func (f *fakePipeline) Reset() {
	f.DiscardStaging()
	f.live = nil
}

func (f *fakePipeline) SeekLive(pos time.Duration) error {
	f.seeks = append(f.seeks, pos)
	f.eot = false
	return nil
}

func (f *fakePipeline) SetPaused(paused bool)     { f.paused = paused }
func (f *fakePipeline) EndOfTrack() bool          { return f.eot }
func (f *fakePipeline) LiveSong() *music.SongData { return f.live }

type recordingNotifier struct{ events []Event }

func (r *recordingNotifier) Notify(e Event, _ Status) { r.events = append(r.events, e) }

func (r *recordingNotifier) count(e Event) int {
	n := 0
	for _, got := range r.events {
		if got == e {
			n++
		}
	}
	return n
}

type fixture struct {
	player   *Player
	pipeline *fakePipeline
	playlist *music.PlayList
	clock    *fakeClock
	events   *recordingNotifier
}

func newFixture(t *testing.T, paths ...string) *fixture {
	t.Helper()
	pl := music.NewPlayList()
	for _, p := range paths {
		pl.Append(p, nil)
	}
	f := &fixture{
		pipeline: newFakePipeline(),
		playlist: pl,
		clock:    &fakeClock{t: time.Unix(1000, 0)},
		events:   &recordingNotifier{},
	}
	f.player = NewPlayer(f.pipeline, pl, f.events, nil, Options{
		SeekStep: 5 * time.Second,
		Now:      f.clock.now,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	})
	return f
}

func (f *fixture) play(t *testing.T) {
	t.Helper()
	if err := f.player.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
}

func (f *fixture) currentPath() string {
	s := f.player.Session()
	if s.Current == nil {
		return ""
	}
	return s.Current.Path
}

func TestPlayLoadsFirstAndPreloadsNext(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	f.play(t)

	if len(f.pipeline.loadFirst) != 1 || f.pipeline.loadFirst[0] != "a" {
		t.Errorf("LoadFirst calls = %v", f.pipeline.loadFirst)
	}
	if len(f.pipeline.preloads) != 1 || f.pipeline.preloads[0] != "b" {
		t.Errorf("Preload calls = %v", f.pipeline.preloads)
	}
	st := f.player.Status()
	if st.State != "playing" || st.Number != 1 || st.Title != "a" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestPlayEmptyPlaylist(t *testing.T) {
	f := newFixture(t)
	if err := f.player.Play(context.Background()); !errors.Is(err, ErrEmptyPlaylist) {
		t.Errorf("Play() error = %v, want ErrEmptyPlaylist", err)
	}
}

func TestElapsedExcludesPauses(t *testing.T) {
	f := newFixture(t, "a")
	f.play(t)

	f.clock.advance(10 * time.Second)
	if got := f.player.Status().Elapsed; got != 10*time.Second {
		t.Fatalf("Elapsed = %v, want 10s", got)
	}

	f.player.Pause()
	if !f.pipeline.paused {
		t.Error("pipeline not paused")
	}
	f.clock.advance(7 * time.Second)
	if got := f.player.Status().Elapsed; got != 10*time.Second {
		t.Errorf("Elapsed while paused = %v, want 10s", got)
	}

	f.play(t)
	if got := f.player.timer.PausedTotal(); got != 7*time.Second {
		t.Errorf("PausedTotal = %v, want 7s", got)
	}
	f.clock.advance(time.Second)
	if got := f.player.Status().Elapsed; got != 11*time.Second {
		t.Errorf("Elapsed after resume = %v, want 11s", got)
	}
}

func TestSeeksCoalesceIntoOneDecoderSeek(t *testing.T) {
	f := newFixture(t, "a")
	f.play(t)
	f.clock.advance(20 * time.Second)

	for i := 0; i < 5; i++ {
		f.player.SeekForward()
	}
	if len(f.pipeline.seeks) != 0 {
		t.Fatal("seek issued before tick")
	}
	f.player.Tick()

	if len(f.pipeline.seeks) != 1 {
		t.Fatalf("decoder seeks = %d, want 1", len(f.pipeline.seeks))
	}
	if f.pipeline.seeks[0] != 45*time.Second {
		t.Errorf("seek target = %v, want 45s", f.pipeline.seeks[0])
	}
	if got := f.player.Status().Elapsed; got != 45*time.Second {
		t.Errorf("Elapsed after seek = %v", got)
	}

	f.player.Tick()
	if len(f.pipeline.seeks) != 1 {
		t.Error("seek repeated on a later tick")
	}
}

func TestSeekClampsToSongBounds(t *testing.T) {
	f := newFixture(t, "a")
	f.play(t)

	f.player.SeekBy(-time.Minute)
	f.player.Tick()
	f.player.SetPosition(time.Hour)
	f.player.Tick()

	want := []time.Duration{0, 100 * time.Second}
	if len(f.pipeline.seeks) != 2 || f.pipeline.seeks[0] != want[0] || f.pipeline.seeks[1] != want[1] {
		t.Errorf("seeks = %v, want %v", f.pipeline.seeks, want)
	}
}

func TestSkipPromotesOnTick(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d")
	f.pipeline.manual = true
	f.play(t)

	if err := f.player.SkipToNumber(3); err != nil {
		t.Fatalf("SkipToNumber() error = %v", err)
	}
	f.player.Tick()
	if f.currentPath() != "a" {
		t.Fatalf("promoted before the load finished: %s", f.currentPath())
	}

	f.pipeline.complete()
	f.player.Tick()
	if f.currentPath() != "c" || f.pipeline.live.FilePath != "c" {
		t.Fatalf("current = %s, live = %s", f.currentPath(), f.pipeline.live.FilePath)
	}
	s := f.player.Session()
	if s.SkipInProgress || s.TryNext != nil {
		t.Error("skip flags not cleared")
	}
	if s.Next == nil || s.Next.Path != "d" || f.pipeline.pending != "d" {
		t.Errorf("next = %v, pending preload = %s", s.Next, f.pipeline.pending)
	}
}

func TestRapidSkipsMoveFromPendingTarget(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d")
	f.pipeline.manual = true
	f.play(t)

	for i := 0; i < 3; i++ {
		if err := f.player.SkipNext(); err != nil {
			t.Fatal(err)
		}
	}
	f.pipeline.complete()
	f.player.Tick()
	if f.currentPath() != "d" {
		t.Errorf("current = %s, want d", f.currentPath())
	}
	if err := f.player.SkipNext(); !errors.Is(err, ErrNoSuchSong) {
		t.Errorf("SkipNext() at end = %v, want ErrNoSuchSong", err)
	}
}

func TestAutoAdvanceAndStopAtEnd(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.play(t)

	f.pipeline.eot = true
	f.player.Tick()
	if f.currentPath() != "b" {
		t.Fatalf("current = %s, want b", f.currentPath())
	}

	f.pipeline.eot = true
	f.player.Tick()
	if st := f.player.Status(); st.State != "stopped" {
		t.Errorf("state at end of playlist = %s", st.State)
	}
	if f.pipeline.live != nil {
		t.Error("pipeline not reset on stop")
	}
}

func TestRepeatModes(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.play(t)

	if got := f.player.ToggleRepeat(); got != RepeatSong {
		t.Fatalf("ToggleRepeat() = %s", got)
	}
	if s := f.player.Session(); s.Next != s.Current {
		t.Error("repeat song does not plan the current node")
	}
	f.pipeline.eot = true
	f.player.Tick()
	if f.currentPath() != "a" {
		t.Errorf("current = %s after repeat song", f.currentPath())
	}

	if got := f.player.ToggleRepeat(); got != RepeatList {
		t.Fatalf("ToggleRepeat() = %s", got)
	}
	if err := f.player.SkipToLast(); err != nil {
		t.Fatal(err)
	}
	f.player.Tick()
	if s := f.player.Session(); s.Next == nil || s.Next.Path != "a" {
		t.Errorf("repeat list next = %v, want a", s.Next)
	}

	if got := f.player.ToggleRepeat(); got != RepeatOff {
		t.Errorf("ToggleRepeat() = %s, want off", got)
	}
}

func TestLoadErrorsAdvanceWithOneNotice(t *testing.T) {
	f := newFixture(t, "bad1", "bad2", "good")
	f.pipeline.songs["bad1"] = &music.SongData{FilePath: "bad1", HasErrors: true, Metadata: &music.Metadata{}}
	f.pipeline.songs["bad2"] = &music.SongData{FilePath: "bad2", HasErrors: true, Metadata: &music.Metadata{}}
	f.play(t)

	f.player.Tick()
	f.player.Tick()
	if f.currentPath() != "good" {
		t.Fatalf("current = %s, want good", f.currentPath())
	}
	if n := f.events.count(EventLoadError); n != 1 {
		t.Errorf("load error notices = %d, want 1", n)
	}
	if f.player.Session().ClearingErrors {
		t.Error("ClearingErrors still set after a good song")
	}
}

func TestAllSongsFailingStops(t *testing.T) {
	f := newFixture(t, "bad")
	f.pipeline.songs["bad"] = &music.SongData{FilePath: "bad", HasErrors: true}
	f.player.ToggleRepeat()
	f.player.ToggleRepeat()
	f.play(t)

	f.player.Tick()
	if st := f.player.Status(); st.State != "stopped" {
		t.Errorf("state = %s, want stopped", st.State)
	}
}

func TestReshuffleKeepsCurrentNode(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d", "e", "f")
	f.play(t)
	if err := f.player.SkipToNumber(4); err != nil {
		t.Fatal(err)
	}
	f.player.Tick()
	before := f.player.Session().Current

	for i := 0; i < 5; i++ {
		f.player.Reshuffle()
		s := f.player.Session()
		if s.Current != before {
			t.Fatalf("current node changed to %v", s.Current)
		}
		if f.playlist.Head() != before {
			t.Fatalf("current node not first after reshuffle")
		}
		if f.playlist.Len() != 6 {
			t.Fatalf("playlist length = %d", f.playlist.Len())
		}
	}
}

func TestToggleShuffleRestoresOrder(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d")
	f.play(t)
	if !f.player.ToggleShuffle() {
		t.Fatal("ToggleShuffle() = false")
	}
	if f.player.ToggleShuffle() {
		t.Fatal("ToggleShuffle() = true")
	}
	got := f.playlist.Paths()
	for i, want := range []string{"a", "b", "c", "d"} {
		if got[i] != want {
			t.Fatalf("order = %v", got)
		}
	}
}

func TestSkipWhileStoppedStaysStopped(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	if err := f.player.SkipToNumber(2); err != nil {
		t.Fatal(err)
	}
	if st := f.player.Status(); st.State != "stopped" || st.Number != 2 {
		t.Errorf("Status() = %+v", st)
	}
	if len(f.pipeline.preloads) != 0 {
		t.Error("preload requested while stopped")
	}
	f.play(t)
	if f.pipeline.loadFirst[0] != "b" {
		t.Errorf("started from %s, want b", f.pipeline.loadFirst[0])
	}
}

func TestSkipPrevAtHeadRestarts(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.play(t)
	f.clock.advance(30 * time.Second)
	if err := f.player.SkipPrev(); err != nil {
		t.Fatal(err)
	}
	f.player.Tick()
	if len(f.pipeline.seeks) != 1 || f.pipeline.seeks[0] != 0 {
		t.Errorf("seeks = %v, want [0]", f.pipeline.seeks)
	}
	if f.currentPath() != "a" {
		t.Errorf("current = %s", f.currentPath())
	}
}

func TestEditPlaylistDropsRemovedTarget(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	f.pipeline.manual = true
	f.play(t)
	if err := f.player.SkipToNumber(3); err != nil {
		t.Fatal(err)
	}
	f.player.EditPlaylist(func(pl *music.PlayList) {
		pl.Remove(pl.FindByPath("c"))
	})
	s := f.player.Session()
	if s.SkipInProgress || s.TryNext != nil {
		t.Error("skip to a removed node still pending")
	}
	if s.Next == nil || s.Next.Path != "b" {
		t.Errorf("next = %v, want b", s.Next)
	}
}

func TestStopKeepsCurrentNode(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.play(t)
	f.player.Stop()
	st := f.player.Status()
	if st.State != "stopped" || st.Number != 1 || st.Elapsed != 0 {
		t.Errorf("Status() = %+v", st)
	}
	f.player.SeekForward()
	if f.player.Session().seekRequested {
		t.Error("seek recorded while stopped")
	}
}
