package playback

import "time"

// Clock measures how much of the current track has actually played,
// accumulating across pause/resume cycles. The audio output does not report
// frame-accurate positions for every format, so this clock is the
// authoritative progress source.
type Clock struct {
	now          func() time.Time
	sessionStart time.Time // zero while paused or stopped
	accumulated  time.Duration
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Start opens a new playback session. The previous session must have been
// closed by Pause or Reset first; calling Start twice in a row discards the
// first session's contribution. That is a contract on the caller, not a
// condition handled here.
func (c *Clock) Start() {
	c.sessionStart = c.now()
}

// Pause folds the open session into the accumulated total. No-op when no
// session is open.
func (c *Clock) Pause() {
	if !c.sessionStart.IsZero() {
		c.accumulated += c.now().Sub(c.sessionStart)
		c.sessionStart = time.Time{}
	}
}

// Reset zeroes the clock. Called exactly when a new track begins.
func (c *Clock) Reset() {
	c.accumulated = 0
	c.sessionStart = time.Time{}
}

// Elapsed returns the total time played so far for the current track,
// including the open session if one is running. It never mutates state.
func (c *Clock) Elapsed() time.Duration {
	if c.sessionStart.IsZero() {
		return c.accumulated
	}
	return c.accumulated + c.now().Sub(c.sessionStart)
}
