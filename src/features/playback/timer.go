package playback

import "time"

// Timer measures elapsed playback time on the monotonic clock, excluding
// the time spent paused.
type Timer struct {
	now func() time.Time

	running  bool
	paused   bool
	start    time.Time
	pausedAt time.Time
	total    time.Duration
}

// NewTimer creates a stopped timer. now defaults to time.Now, whose readings
// carry a monotonic component.
func NewTimer(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

// Start restarts the count from zero in the running state.
func (t *Timer) Start() {
	t.running = true
	t.paused = false
	t.start = t.now()
	t.total = 0
}

// Pause freezes the elapsed time.
func (t *Timer) Pause() {
	if !t.running || t.paused {
		return
	}
	t.paused = true
	t.pausedAt = t.now()
}

// Resume adds the time since Pause to the paused total.
func (t *Timer) Resume() {
	if !t.paused {
		return
	}
	t.total += t.now().Sub(t.pausedAt)
	t.paused = false
}

// Reset stops the timer.
func (t *Timer) Reset() {
	*t = Timer{now: t.now}
}

// Set moves the elapsed time to d, keeping the paused state.
func (t *Timer) Set(d time.Duration) {
	if !t.running {
		return
	}
	t.start = t.reference().Add(-d - t.total)
}

func (t *Timer) reference() time.Time {
	if t.paused {
		return t.pausedAt
	}
	return t.now()
}

// Elapsed returns the playing time since Start.
func (t *Timer) Elapsed() time.Duration {
	if !t.running {
		return 0
	}
	e := t.reference().Sub(t.start) - t.total
	if e < 0 {
		return 0
	}
	return e
}

// PausedTotal returns the accumulated pause time of finished pauses.
func (t *Timer) PausedTotal() time.Duration { return t.total }
