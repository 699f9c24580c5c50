// Package audio implements the playback output port on top of beep and the
// system speaker.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/pmoreau/cadence/pkg/playback"
)

// ErrUnsupportedFormat is returned by Decode for file types without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// sampleRate is the fixed speaker rate; streams are resampled to it so mixed
// formats can share one output device.
const sampleRate = beep.SampleRate(44100)

const (
	volumeStep = 0.25
	volumeMin  = -6.0
	volumeMax  = 2.0
)

// stream pairs a decoded streamer with its native format so Replace can
// resample it to the speaker rate.
type stream struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
}

func (s *stream) Close() error {
	return s.streamer.Close()
}

// Output plays decoded streams through the system speaker. It implements
// playback.Output. The speaker runs its own output goroutine; all state here
// is guarded by mu and, where beep requires it, speaker.Lock.
type Output struct {
	mu sync.Mutex

	current *stream
	ctrl    *beep.Ctrl
	volume  *effects.Volume
	done    chan struct{} // closed when the queued stream runs dry

	level float64 // log2 gain applied to every stream
	muted bool
}

// New initialises the speaker and returns an output ready for use.
func New() (*Output, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("failed to initialise speaker: %w", err)
	}
	return &Output{}, nil
}

// Decode opens and decodes the file at path, dispatching on its extension.
func (o *Output) Decode(path string) (playback.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return &stream{streamer: streamer, format: format}, nil
}

// Replace discards the queued stream and begins the new one. The stream must
// have come from this output's Decode.
func (o *Output) Replace(s playback.Stream) {
	st, ok := s.(*stream)
	if !ok {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()

	resampled := beep.Resample(4, st.format.SampleRate, sampleRate, st.streamer)
	o.ctrl = &beep.Ctrl{Streamer: resampled}
	o.volume = &effects.Volume{
		Streamer: o.ctrl,
		Base:     2,
		Volume:   o.level,
		Silent:   o.muted,
	}
	o.current = st

	// A fresh channel per stream; a stale callback from a superseded stream
	// closes a channel nothing reads anymore.
	done := make(chan struct{})
	o.done = done

	speaker.Play(beep.Seq(o.volume, beep.Callback(func() {
		close(done)
	})))
}

// SetPaused suspends or resumes the queued stream.
func (o *Output) SetPaused(paused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctrl == nil {
		return
	}
	speaker.Lock()
	o.ctrl.Paused = paused
	speaker.Unlock()
}

// Stop discards the queued stream.
func (o *Output) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopLocked()
}

func (o *Output) stopLocked() {
	speaker.Clear()
	if o.current != nil {
		_ = o.current.Close()
		o.current = nil
	}
	o.ctrl = nil
	o.volume = nil
	o.done = nil
}

// Drained reports whether the queued stream has finished producing output.
// False when nothing is queued.
func (o *Output) Drained() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done == nil {
		return false
	}
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// VolumeUp raises the gain one step.
func (o *Output) VolumeUp() {
	o.adjustVolume(volumeStep)
}

// VolumeDown lowers the gain one step.
func (o *Output) VolumeDown() {
	o.adjustVolume(-volumeStep)
}

func (o *Output) adjustVolume(delta float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.level += delta
	if o.level > volumeMax {
		o.level = volumeMax
	}
	if o.level < volumeMin {
		o.level = volumeMin
	}
	o.applyVolumeLocked()
}

// ToggleMute flips muting and returns the new value.
func (o *Output) ToggleMute() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.muted = !o.muted
	o.applyVolumeLocked()
	return o.muted
}

func (o *Output) applyVolumeLocked() {
	if o.volume == nil {
		return
	}
	speaker.Lock()
	o.volume.Volume = o.level
	o.volume.Silent = o.muted
	speaker.Unlock()
}

// Level returns the current log2 gain.
func (o *Output) Level() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// SetLevel restores a previously saved gain.
func (o *Output) SetLevel(level float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if level > volumeMax {
		level = volumeMax
	}
	if level < volumeMin {
		level = volumeMin
	}
	o.level = level
	o.applyVolumeLocked()
}

// Muted reports whether output is muted.
func (o *Output) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}
