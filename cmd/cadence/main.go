package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pmoreau/cadence/pkg/audio"
	"github.com/pmoreau/cadence/pkg/config"
	"github.com/pmoreau/cadence/pkg/db"
	"github.com/pmoreau/cadence/pkg/library"
	"github.com/pmoreau/cadence/pkg/playback"
	"github.com/pmoreau/cadence/pkg/ui"
)

type Params struct {
	Path    string `pos:"true" optional:"true" help:"Music directory or file to play. Defaults to CADENCE_LIBRARY or the last played library."`
	Shuffle bool   `help:"Start with shuffle enabled." default:"false"`
	Repeat  string `help:"Initial repeat mode (off, one or all)." default:"off"`
	LogFile string `optional:"true" help:"Write logs to this file instead of the default location."`
}

func main() {
	boa.CmdT[Params]{
		Use:   "cadence [path]",
		Short: "Terminal music player",
		ParamEnrich: boa.ParamEnricherCombine(
			boa.ParamEnricherBool,
			boa.ParamEnricherName,
			boa.ParamEnricherShort,
		),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "cadence: %v\n", err)
				os.Exit(1)
			}
		},
	}.Run()
}

func run(params *Params) error {
	cfg := config.Load()

	logFile := params.LogFile
	if logFile == "" {
		logFile = cfg.LogFile
	}
	closeLog, err := setupLogging(logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	// Settings/cache database is best effort; the player works without it.
	var store *db.DB
	if store, err = db.New(cfg.DBPath); err != nil {
		slog.Warn("settings database unavailable", "path", cfg.DBPath, "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	path, err := resolveLibraryPath(params.Path, cfg, store)
	if err != nil {
		return err
	}

	var cache library.DurationCache
	if store != nil {
		cache = store
	}
	catalog, err := library.Load(path, audio.Probes(), cache)
	if err != nil {
		if errors.Is(err, library.ErrEmptyCatalog) {
			return fmt.Errorf("no playable audio files (mp3, wav, ogg, flac) in %s", path)
		}
		return err
	}

	out, err := audio.New()
	if err != nil {
		return err
	}
	restoreVolume(out, store)

	ctl, err := playback.New(catalog, out)
	if err != nil {
		return err
	}
	if params.Shuffle {
		ctl.ToggleShuffle()
	}
	repeat, err := playback.ParseRepeatMode(params.Repeat)
	if err != nil {
		return err
	}
	for ctl.Repeat() != repeat {
		ctl.CycleRepeat()
	}

	// Start on the first track before handing the terminal to the UI. A
	// fully unplayable catalog is not fatal: the list is still browsable.
	if err := ctl.Select(0); err != nil {
		slog.Warn("could not start playback", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting", "library", path, "tracks", catalog.Len())
	p := tea.NewProgram(ui.NewModel(catalog, ctl, out), tea.WithContext(ctx))
	_, runErr := p.Run()

	ctl.Stop()
	saveSettings(store, path, out)
	slog.Info("shutting down")

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running program: %w", runErr)
	}
	return nil
}

// setupLogging sends slog output to a file; the TUI owns the terminal.
func setupLogging(path string) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, nil)))
	return func() { _ = f.Close() }, nil
}

// resolveLibraryPath picks the library location: CLI argument, then
// environment, then the last played library.
func resolveLibraryPath(arg string, cfg *config.Config, store *db.DB) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if cfg.LibraryPath != "" {
		return cfg.LibraryPath, nil
	}
	if store != nil {
		if last, err := store.GetSetting("library_path"); err == nil && last != "" {
			return last, nil
		}
	}
	return "", errors.New("no music directory given (pass a path or set CADENCE_LIBRARY)")
}

func restoreVolume(out *audio.Output, store *db.DB) {
	if store == nil {
		return
	}
	if v, err := store.GetSetting("volume"); err == nil && v != "" {
		if level, err := strconv.ParseFloat(v, 64); err == nil {
			out.SetLevel(level)
		}
	}
}

func saveSettings(store *db.DB, path string, out *audio.Output) {
	if store == nil {
		return
	}
	if err := store.SaveSetting("library_path", path); err != nil {
		slog.Warn("failed to save library path", "error", err)
	}
	if err := store.SaveSetting("volume", strconv.FormatFloat(out.Level(), 'f', -1, 64)); err != nil {
		slog.Warn("failed to save volume", "error", err)
	}
}
