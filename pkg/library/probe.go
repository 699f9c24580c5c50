package library

import (
	"path/filepath"
	"strings"
	"time"
)

// Probe extracts the playback duration of a single audio file.
type Probe func(path string) (time.Duration, error)

// ProbeRegistry maps file extensions to duration probes. Formats without a
// registered probe keep an unknown duration; supporting a new format is a
// matter of registering a probe, nothing downstream changes.
type ProbeRegistry struct {
	probes map[string]Probe
}

func NewProbeRegistry() *ProbeRegistry {
	return &ProbeRegistry{probes: make(map[string]Probe)}
}

// Register installs a probe for a file extension (e.g. ".mp3").
func (r *ProbeRegistry) Register(ext string, p Probe) {
	r.probes[strings.ToLower(ext)] = p
}

// Lookup returns the probe registered for the extension of path, if any.
func (r *ProbeRegistry) Lookup(path string) (Probe, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.probes[ext]
	return p, ok
}
