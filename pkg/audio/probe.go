package audio

import (
	"fmt"
	"os"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/pmoreau/cadence/pkg/library"
)

// decodeFunc matches the beep format decoders, narrowed to files.
type decodeFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

// Probes returns the duration probe registry for every supported format. Each
// probe opens the decoder and reads the stream length from its headers; no
// audio is rendered.
func Probes() *library.ProbeRegistry {
	r := library.NewProbeRegistry()
	r.Register(".mp3", probeWith(func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(f)
	}))
	r.Register(".wav", probeWith(func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(f)
	}))
	r.Register(".ogg", probeWith(func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(f)
	}))
	r.Register(".flac", probeWith(func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(f)
	}))
	return r
}

func probeWith(decode decodeFunc) library.Probe {
	return func(path string) (time.Duration, error) {
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("failed to open audio file: %w", err)
		}

		streamer, format, err := decode(f)
		if err != nil {
			_ = f.Close()
			return 0, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		defer streamer.Close()

		return format.SampleRate.D(streamer.Len()), nil
	}
}
