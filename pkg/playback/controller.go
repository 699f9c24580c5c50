package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pmoreau/cadence/pkg/library"
)

var (
	ErrNoPlayableTrack = errors.New("no playable track")
	ErrIndexOutOfRange = errors.New("track index out of range")
)

// State is the playback state machine's current state.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// RepeatMode controls what the driver loop does when a track completes
// naturally. The controller only stores and cycles the mode; interpreting it
// is the driver's job.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatOne
	RepeatAll
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatOne:
		return "One"
	case RepeatAll:
		return "All"
	default:
		return "Off"
	}
}

// ParseRepeatMode converts a user-supplied mode name to a RepeatMode.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "off", "":
		return RepeatOff, nil
	case "one":
		return RepeatOne, nil
	case "all":
		return RepeatAll, nil
	default:
		return RepeatOff, fmt.Errorf("invalid repeat mode: %q (want off, one or all)", s)
	}
}

const (
	// completionGrace is how far elapsed time may exceed a known track
	// duration before the track counts as finished even if the output has
	// not reported drained. Some formats report drained late or not at all.
	completionGrace = 500 * time.Millisecond

	// fallbackDuration is the progress-display estimate for tracks with
	// unknown duration. Display only; it never drives completion detection.
	fallbackDuration = 5 * time.Minute
)

// Controller owns the playback session: the current index into the catalog,
// pause state, mode flags, the playback clock and the audio output handle.
//
// All methods run to completion on the calling goroutine and are not
// reentrant; the driver must serialize calls.
type Controller struct {
	catalog *library.Catalog
	out     Output
	clock   *Clock

	index    int
	state    State
	shuffled bool
	repeat   RepeatMode
}

// New creates a controller over a loaded catalog. The catalog must be
// non-empty; an empty one is rejected with library.ErrEmptyCatalog.
func New(catalog *library.Catalog, out Output) (*Controller, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, library.ErrEmptyCatalog
	}
	return &Controller{
		catalog: catalog,
		out:     out,
		clock:   NewClock(),
		state:   StateStopped,
	}, nil
}

// Select makes i the current track and starts playing it, falling forward to
// the next decodable track when it cannot be decoded. Returns
// ErrNoPlayableTrack when every track in the catalog fails to decode.
func (c *Controller) Select(i int) error {
	if i < 0 || i >= c.catalog.Len() {
		return ErrIndexOutOfRange
	}
	return c.playFrom(i)
}

// Next advances to the following track (wrapping) and plays it.
func (c *Controller) Next() error {
	return c.playFrom((c.index + 1) % c.catalog.Len())
}

// Previous retreats to the preceding track (wrapping) and plays it.
func (c *Controller) Previous() error {
	return c.playFrom((c.index - 1 + c.catalog.Len()) % c.catalog.Len())
}

// playFrom attempts to start playback at index start. Tracks that fail to
// decode are skipped (logged, never surfaced) and the search continues
// through the catalog, wrapping, until one decodes or all have been tried.
func (c *Controller) playFrom(start int) error {
	c.out.Stop()
	c.index = start

	for attempt := 0; attempt < c.catalog.Len(); attempt++ {
		idx := (start + attempt) % c.catalog.Len()
		track := c.catalog.At(idx)

		stream, err := c.out.Decode(track.Path)
		if err != nil {
			slog.Warn("skipping unplayable track", "title", track.Title, "error", err)
			continue
		}

		c.index = idx
		c.out.Replace(stream)
		c.clock.Reset()
		c.clock.Start()
		c.state = StatePlaying
		slog.Info("playing", "title", track.Title, "index", idx)
		return nil
	}

	c.clock.Reset()
	c.state = StateStopped
	return ErrNoPlayableTrack
}

// TogglePause switches between Playing and Paused. No-op while stopped.
func (c *Controller) TogglePause() {
	switch c.state {
	case StatePlaying:
		c.clock.Pause()
		c.out.SetPaused(true)
		c.state = StatePaused
	case StatePaused:
		c.clock.Start()
		c.out.SetPaused(false)
		c.state = StatePlaying
	}
}

// Stop halts playback and resets the clock. Safe to call in any state, any
// number of times.
func (c *Controller) Stop() {
	c.out.Stop()
	c.clock.Reset()
	c.state = StateStopped
}

// ToggleShuffle flips the shuffle flag and returns the new value. The flag
// changes nothing inside the controller; the driver uses it to decide how to
// advance on natural completion.
func (c *Controller) ToggleShuffle() bool {
	c.shuffled = !c.shuffled
	return c.shuffled
}

// CycleRepeat advances the repeat mode Off -> One -> All -> Off and returns
// the new mode.
func (c *Controller) CycleRepeat() RepeatMode {
	switch c.repeat {
	case RepeatOff:
		c.repeat = RepeatOne
	case RepeatOne:
		c.repeat = RepeatAll
	default:
		c.repeat = RepeatOff
	}
	return c.repeat
}

// Finished reports whether the current track has played to its end: either
// the output reports drained, or, for tracks with a known duration, the
// clock has passed that duration by the grace margin. Tracks without a known
// duration finish only on the output signal. Never true while stopped.
func (c *Controller) Finished() bool {
	if c.state == StateStopped {
		return false
	}
	if c.out.Drained() {
		return true
	}
	if d := c.Current().Duration; d > 0 {
		return c.clock.Elapsed() >= d+completionGrace
	}
	return false
}

// Progress returns playback progress in [0, 1], exactly 1 once the track is
// finished. Tracks with unknown duration use a fixed display estimate.
func (c *Controller) Progress() float64 {
	if c.Finished() {
		return 1.0
	}

	estimate := c.Current().Duration
	if estimate <= 0 {
		estimate = fallbackDuration
	}
	p := c.clock.Elapsed().Seconds() / estimate.Seconds()
	return math.Max(0, math.Min(p, 1.0))
}

// Current returns the track at the current index.
func (c *Controller) Current() library.Track {
	return c.catalog.At(c.index)
}

// Index returns the current position in the catalog.
func (c *Controller) Index() int {
	return c.index
}

// State returns the current playback state.
func (c *Controller) State() State {
	return c.state
}

// IsPaused reports whether playback is paused.
func (c *Controller) IsPaused() bool {
	return c.state == StatePaused
}

// Shuffled reports whether shuffle mode is enabled.
func (c *Controller) Shuffled() bool {
	return c.shuffled
}

// Repeat returns the current repeat mode.
func (c *Controller) Repeat() RepeatMode {
	return c.repeat
}

// TrackCount returns the catalog size.
func (c *Controller) TrackCount() int {
	return c.catalog.Len()
}

// Elapsed returns the play time accrued for the current track.
func (c *Controller) Elapsed() time.Duration {
	return c.clock.Elapsed()
}
