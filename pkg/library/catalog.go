package library

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ErrEmptyCatalog is returned when a load produces no playable tracks.
var ErrEmptyCatalog = errors.New("no playable tracks found")

// supportedExtensions is the allow-list of playable file extensions.
var supportedExtensions = []string{".mp3", ".wav", ".ogg", ".flac"}

// DurationCache stores probed durations between runs so unchanged files are
// not decoded again at startup. A nil cache is valid and disables caching.
type DurationCache interface {
	Duration(path string, mtime time.Time) (time.Duration, bool)
	SaveDuration(path string, mtime time.Time, d time.Duration) error
}

// Catalog is an ordered, immutable-after-load list of tracks.
type Catalog struct {
	tracks []Track
}

// NewCatalog builds a catalog from an already-assembled track list, in the
// given order. Returns ErrEmptyCatalog when the list is empty.
func NewCatalog(tracks []Track) (*Catalog, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyCatalog
	}
	return &Catalog{tracks: tracks}, nil
}

// Load scans a directory tree (or accepts a single file) for playable audio
// files and builds a catalog in walk order. Durations are filled in by the
// probe registry where a probe exists for the format, consulting the cache
// first when one is given.
func Load(root string, probes *ProbeRegistry, cache DurationCache) (*Catalog, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	var tracks []Track
	if !info.IsDir() {
		if isAudioFile(root) {
			tracks = append(tracks, loadFile(root, info.ModTime(), probes, cache))
		}
	} else {
		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				slog.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if info.IsDir() || !isAudioFile(path) {
				return nil
			}
			tracks = append(tracks, loadFile(path, info.ModTime(), probes, cache))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	catalog, err := NewCatalog(tracks)
	if err != nil {
		return nil, err
	}
	slog.Info("library loaded", "path", root, "tracks", len(tracks))
	return catalog, nil
}

func loadFile(path string, mtime time.Time, probes *ProbeRegistry, cache DurationCache) Track {
	return newTrack(path, probeDuration(path, mtime, probes, cache))
}

func probeDuration(path string, mtime time.Time, probes *ProbeRegistry, cache DurationCache) time.Duration {
	if probes == nil {
		return 0
	}
	probe, ok := probes.Lookup(path)
	if !ok {
		return 0
	}

	if cache != nil {
		if d, ok := cache.Duration(path, mtime); ok {
			return d
		}
	}

	d, err := probe(path)
	if err != nil {
		slog.Warn("duration probe failed", "path", path, "error", err)
		return 0
	}
	if cache != nil {
		if err := cache.SaveDuration(path, mtime, d); err != nil {
			slog.Warn("failed to cache duration", "path", path, "error", err)
		}
	}
	return d
}

func isAudioFile(path string) bool {
	return lo.Contains(supportedExtensions, strings.ToLower(filepath.Ext(path)))
}

// Len returns the number of tracks in the catalog.
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// At returns the track at index i. The index must be in [0, Len).
func (c *Catalog) At(i int) Track {
	return c.tracks[i]
}

// Tracks returns the catalog contents in order. The returned slice is a copy.
func (c *Catalog) Tracks() []Track {
	out := make([]Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}
