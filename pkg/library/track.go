package library

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/google/uuid"
)

// Track represents a playable file. All fields are set once at load time and
// never change afterwards.
type Track struct {
	ID       string
	Path     string
	Title    string
	Artist   string
	Duration time.Duration // 0 when unknown
}

func newTrack(path string, duration time.Duration) Track {
	t := Track{
		ID:       uuid.NewString(),
		Path:     path,
		Title:    titleFromPath(path),
		Duration: duration,
	}

	// Prefer tagged metadata when the file carries it, otherwise keep the
	// filename-derived title.
	if tag, err := id3v2.Open(path, id3v2.Options{Parse: true}); err == nil {
		if title := strings.TrimSpace(tag.Title()); title != "" {
			t.Title = title
		}
		t.Artist = strings.TrimSpace(tag.Artist())
		_ = tag.Close()
	}

	return t
}

func titleFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
