package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pmoreau/cadence/pkg/playback"
)

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.showHelp {
		return m.helpView()
	}

	m.viewport.SetContent(m.trackListView())
	return m.viewport.View() + "\n" + m.footerView()
}

func (m Model) trackListView() string {
	var list strings.Builder
	for i, track := range m.tracks {
		cursor := " "
		if i == m.cursor {
			cursor = m.styles.cursor.Render(">")
		}

		marker := "  "
		style := m.styles.track
		if i == m.ctl.Index() && m.ctl.State() != playback.StateStopped {
			style = m.styles.playing
			if m.ctl.IsPaused() {
				marker = "⏸ "
			} else {
				marker = "♪ "
			}
		}

		line := style.Render(marker + track.Title)
		if track.Artist != "" {
			line += m.styles.artist.Render(" - " + track.Artist)
		}
		list.WriteString(fmt.Sprintf("%s %s\n", cursor, line))
	}
	return list.String()
}

func (m Model) footerView() string {
	status := "■ Stopped"
	switch m.ctl.State() {
	case playback.StatePlaying:
		status = "♪ Playing"
	case playback.StatePaused:
		status = "⏸ Paused"
	}
	nowPlaying := m.styles.status.Render(
		fmt.Sprintf("%s: %s", status, m.ctl.Current().Title),
	)

	bar := m.progress.ViewAs(m.ctl.Progress())

	timeDisplay := formatDuration(m.ctl.Elapsed())
	if total := m.ctl.Current().Duration; total > 0 {
		if m.showTimeLeft {
			timeDisplay += " / -" + formatDuration(total-m.ctl.Elapsed())
		} else {
			timeDisplay += " / " + formatDuration(total)
		}
	} else {
		timeDisplay += " / --:--"
	}

	modeLine := fmt.Sprintf(
		"Shuffle: %s | Repeat: %s | Vol: %s | ? for help",
		onOff(m.ctl.Shuffled()),
		m.ctl.Repeat(),
		m.volumeDisplay(),
	)
	if m.err != nil {
		modeLine = m.styles.errText.Render(fmt.Sprintf("Error: %v", m.err))
	}

	centered := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center)
	return strings.Join([]string{
		centered.Render(nowPlaying),
		centered.Render(bar),
		centered.Render(m.styles.time.Render(timeDisplay)),
		centered.Render(m.styles.help.Render(modeLine)),
	}, "\n")
}

func (m Model) helpView() string {
	help := strings.Join([]string{
		"cadence",
		"",
		"Navigation:",
		"  j, down   - Move down in track list",
		"  k, up     - Move up in track list",
		"",
		"Playback:",
		"  Space     - Play selected track or pause/resume",
		"  Enter     - Play selected track",
		"  n         - Next track",
		"  p         - Previous track",
		"  S         - Stop playback",
		"",
		"Modes:",
		"  s         - Toggle shuffle",
		"  r         - Cycle repeat mode (Off/One/All)",
		"",
		"Volume:",
		"  +, -      - Volume up/down",
		"  m         - Toggle mute",
		"",
		"Other:",
		"  t         - Toggle time display",
		"  q, Esc    - Quit",
		"  ?, h      - Toggle this help",
		"",
		"Press any key to close help...",
	}, "\n")

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, help)
}

func (m Model) volumeDisplay() string {
	if m.vol.Muted() {
		return "muted"
	}
	// The output applies a log2 gain; show it as a percentage of unity.
	return fmt.Sprintf("%.0f%%", math.Pow(2, m.vol.Level())*100)
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	min := d / time.Minute
	d -= min * time.Minute
	sec := d / time.Second
	return fmt.Sprintf("%02d:%02d", min, sec)
}
