package playback

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/pmoreau/cadence/pkg/library"
)

type fakeStream struct {
	path   string
	closed bool
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeOutput implements Output in memory. Paths listed in failing refuse to
// decode.
type fakeOutput struct {
	failing map[string]bool
	current *fakeStream
	paused  bool
	drained bool
	stops   int
}

func newFakeOutput(failing ...string) *fakeOutput {
	o := &fakeOutput{failing: make(map[string]bool)}
	for _, p := range failing {
		o.failing[p] = true
	}
	return o
}

func (o *fakeOutput) Decode(path string) (Stream, error) {
	if o.failing[path] {
		return nil, errors.New("decode failed")
	}
	return &fakeStream{path: path}, nil
}

func (o *fakeOutput) Replace(s Stream) {
	o.current = s.(*fakeStream)
	o.drained = false
}

func (o *fakeOutput) SetPaused(paused bool) { o.paused = paused }

func (o *fakeOutput) Stop() {
	o.stops++
	o.current = nil
	o.drained = false
}

func (o *fakeOutput) Drained() bool { return o.drained }

func trackPath(i int) string {
	return fmt.Sprintf("/music/%02d.mp3", i)
}

func testCatalog(t *testing.T, durations ...time.Duration) *library.Catalog {
	t.Helper()
	tracks := make([]library.Track, len(durations))
	for i, d := range durations {
		tracks[i] = library.Track{
			ID:       fmt.Sprintf("track-%d", i),
			Path:     trackPath(i),
			Title:    fmt.Sprintf("Track %d", i),
			Duration: d,
		}
	}
	catalog, err := library.NewCatalog(tracks)
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}
	return catalog
}

func testController(t *testing.T, out Output, durations ...time.Duration) (*Controller, func(time.Duration)) {
	t.Helper()
	ctl, err := New(testCatalog(t, durations...), out)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	clock, advance := newTestClock()
	ctl.clock = clock
	return ctl, advance
}

func TestNewRejectsEmptyCatalog(t *testing.T) {
	if _, err := New(nil, newFakeOutput()); !errors.Is(err, library.ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", err)
	}
}

func TestSelectStartsPlayback(t *testing.T) {
	out := newFakeOutput()
	ctl, _ := testController(t, out, 0, 0, 0)

	if err := ctl.Select(1); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if ctl.State() != StatePlaying {
		t.Errorf("Expected StatePlaying, got %v", ctl.State())
	}
	if ctl.Index() != 1 {
		t.Errorf("Expected index 1, got %d", ctl.Index())
	}
	if out.current == nil || out.current.path != trackPath(1) {
		t.Errorf("Expected track 1 queued, got %+v", out.current)
	}
	if ctl.Elapsed() != 0 {
		t.Errorf("Expected clock reset on new track, got %v", ctl.Elapsed())
	}
}

func TestSelectOutOfRange(t *testing.T) {
	ctl, _ := testController(t, newFakeOutput(), 0, 0)

	for _, i := range []int{-1, 2, 100} {
		if err := ctl.Select(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Select(%d): expected ErrIndexOutOfRange, got %v", i, err)
		}
	}
}

func TestNextPreviousWrapInverse(t *testing.T) {
	ctl, _ := testController(t, newFakeOutput(), 0, 0, 0)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if err := ctl.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ctl.Index() != 1 {
		t.Errorf("Expected index 1 after Next, got %d", ctl.Index())
	}
	if err := ctl.Previous(); err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if ctl.Index() != 0 {
		t.Errorf("Expected Previous to undo Next, got index %d", ctl.Index())
	}

	// Wraps in both directions.
	if err := ctl.Previous(); err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if ctl.Index() != 2 {
		t.Errorf("Expected wrap to last track, got index %d", ctl.Index())
	}
	if err := ctl.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ctl.Index() != 0 {
		t.Errorf("Expected wrap back to first track, got index %d", ctl.Index())
	}
}

func TestNextPreviousSingleTrackIdentity(t *testing.T) {
	ctl, _ := testController(t, newFakeOutput(), 0)

	if err := ctl.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ctl.Index() != 0 {
		t.Errorf("Expected Next to be identity on single-track catalog, got %d", ctl.Index())
	}
	if err := ctl.Previous(); err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if ctl.Index() != 0 {
		t.Errorf("Expected Previous to be identity on single-track catalog, got %d", ctl.Index())
	}
}

func TestFailoverSkipsUndecodableTrack(t *testing.T) {
	out := newFakeOutput(trackPath(0))
	ctl, _ := testController(t, out, 0, 0)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Expected failover to succeed, got %v", err)
	}
	if ctl.Index() != 1 {
		t.Errorf("Expected failover to land on index 1, got %d", ctl.Index())
	}
	if ctl.State() != StatePlaying {
		t.Errorf("Expected StatePlaying after failover, got %v", ctl.State())
	}
}

func TestFailoverAllTracksUnplayable(t *testing.T) {
	out := newFakeOutput(trackPath(0), trackPath(1))
	ctl, _ := testController(t, out, 0, 0)

	if err := ctl.Select(0); !errors.Is(err, ErrNoPlayableTrack) {
		t.Fatalf("Expected ErrNoPlayableTrack, got %v", err)
	}
	if ctl.State() != StateStopped {
		t.Errorf("Expected StateStopped, got %v", ctl.State())
	}
}

func TestTogglePause(t *testing.T) {
	out := newFakeOutput()
	ctl, advance := testController(t, out, 0)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	advance(2 * time.Second)
	ctl.TogglePause()
	if ctl.State() != StatePaused || !ctl.IsPaused() {
		t.Errorf("Expected StatePaused, got %v", ctl.State())
	}
	if !out.paused {
		t.Error("Expected output paused")
	}

	// Paused time must not accrue.
	advance(10 * time.Second)
	if got := ctl.Elapsed(); got != 2*time.Second {
		t.Errorf("Expected 2s elapsed while paused, got %v", got)
	}

	ctl.TogglePause()
	if ctl.State() != StatePlaying {
		t.Errorf("Expected StatePlaying after resume, got %v", ctl.State())
	}
	if out.paused {
		t.Error("Expected output resumed")
	}
}

func TestTogglePauseNoopWhenStopped(t *testing.T) {
	ctl, _ := testController(t, newFakeOutput(), 0)

	ctl.TogglePause()
	if ctl.State() != StateStopped {
		t.Errorf("Expected TogglePause to be a no-op while stopped, got %v", ctl.State())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	out := newFakeOutput()
	ctl, advance := testController(t, out, 0)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	advance(3 * time.Second)

	ctl.Stop()
	state, elapsed := ctl.State(), ctl.Elapsed()

	ctl.Stop()
	if ctl.State() != state || ctl.Elapsed() != elapsed {
		t.Error("Second Stop changed observable state")
	}
	if ctl.State() != StateStopped {
		t.Errorf("Expected StateStopped, got %v", ctl.State())
	}
	if ctl.Elapsed() != 0 {
		t.Errorf("Expected elapsed reset to zero, got %v", ctl.Elapsed())
	}
}

func TestProgressAcrossPauseCycle(t *testing.T) {
	ctl, advance := testController(t, newFakeOutput(), 10*time.Second, 20*time.Second)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	advance(4 * time.Second)
	assertProgress(t, ctl, 0.4)

	ctl.TogglePause()
	advance(2 * time.Second)
	ctl.TogglePause()
	advance(1 * time.Second)

	if got := ctl.Elapsed(); got != 5*time.Second {
		t.Errorf("Expected 5s elapsed, got %v", got)
	}
	assertProgress(t, ctl, 0.5)
}

func TestFinishedByDurationGrace(t *testing.T) {
	ctl, advance := testController(t, newFakeOutput(), 10*time.Second)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	advance(10*time.Second + 400*time.Millisecond)
	if ctl.Finished() {
		t.Error("Expected not finished inside the grace margin")
	}

	advance(200 * time.Millisecond)
	if !ctl.Finished() {
		t.Error("Expected finished past duration plus grace")
	}
	if got := ctl.Progress(); got != 1.0 {
		t.Errorf("Expected progress exactly 1.0 when finished, got %v", got)
	}
}

func TestFinishedUnknownDurationRequiresDrain(t *testing.T) {
	out := newFakeOutput()
	ctl, advance := testController(t, out, 0)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// No duration: wall time alone never finishes the track.
	advance(time.Hour)
	if ctl.Finished() {
		t.Error("Expected unfinished without drain signal or known duration")
	}

	out.drained = true
	if !ctl.Finished() {
		t.Error("Expected finished once output drained")
	}
	if got := ctl.Progress(); got != 1.0 {
		t.Errorf("Expected progress 1.0, got %v", got)
	}
}

func TestFinishedFalseWhileStopped(t *testing.T) {
	out := newFakeOutput()
	ctl, _ := testController(t, out, 10*time.Second)

	out.drained = true
	if ctl.Finished() {
		t.Error("Expected Finished to be false while stopped")
	}
}

func TestProgressUsesFallbackEstimate(t *testing.T) {
	ctl, advance := testController(t, newFakeOutput(), 0)

	if err := ctl.Select(0); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	// Unknown duration falls back to a 5 minute display estimate.
	advance(150 * time.Second)
	assertProgress(t, ctl, 0.5)

	// And clamps rather than exceeding 1 (not drained, so not finished).
	advance(10 * time.Minute)
	assertProgress(t, ctl, 1.0)
}

func TestCycleRepeat(t *testing.T) {
	ctl, _ := testController(t, newFakeOutput(), 0)

	want := []RepeatMode{RepeatOne, RepeatAll, RepeatOff, RepeatOne}
	for i, expected := range want {
		if got := ctl.CycleRepeat(); got != expected {
			t.Errorf("Cycle %d: expected %v, got %v", i, expected, got)
		}
	}
}

func TestToggleShuffle(t *testing.T) {
	ctl, _ := testController(t, newFakeOutput(), 0)

	if !ctl.ToggleShuffle() || !ctl.Shuffled() {
		t.Error("Expected shuffle on after first toggle")
	}
	if ctl.ToggleShuffle() || ctl.Shuffled() {
		t.Error("Expected shuffle off after second toggle")
	}
}

func TestParseRepeatMode(t *testing.T) {
	cases := map[string]RepeatMode{
		"off": RepeatOff,
		"":    RepeatOff,
		"one": RepeatOne,
		"all": RepeatAll,
	}
	for in, want := range cases {
		got, err := ParseRepeatMode(in)
		if err != nil || got != want {
			t.Errorf("ParseRepeatMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseRepeatMode("sometimes"); err == nil {
		t.Error("Expected error for invalid repeat mode")
	}
}

func assertProgress(t *testing.T, ctl *Controller, want float64) {
	t.Helper()
	got := ctl.Progress()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected progress %v, got %v", want, got)
	}
	if got < 0 || got > 1 {
		t.Errorf("Progress out of range [0,1]: %v", got)
	}
}
