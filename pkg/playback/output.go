package playback

import "io"

// Stream is an opaque decoded audio stream produced by an Output. The
// controller never inspects it; it only hands it back to the same Output.
type Stream interface {
	io.Closer
}

// Output is the narrow interface the controller requires from the audio
// output collaborator. Rendering, mixing and buffering are entirely the
// collaborator's concern; it owns its own output thread.
type Output interface {
	// Decode produces a playable stream for the file at path, or fails with
	// a decode/open error (corrupt file, unsupported codec, missing file).
	Decode(path string) (Stream, error)

	// Replace discards any currently queued stream and begins the new one.
	Replace(s Stream)

	// SetPaused suspends or resumes output without discarding the stream.
	SetPaused(paused bool)

	// Stop discards the queued stream entirely.
	Stop()

	// Drained reports whether the queued stream has finished producing
	// output with nothing pending. Must be cheap: it is polled every tick
	// of the driver loop.
	Drained() bool
}
