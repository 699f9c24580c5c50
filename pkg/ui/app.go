// Package ui is the terminal front end: it renders the catalog and playback
// state, translates key presses into controller commands, and runs the
// periodic poll that realizes repeat/shuffle semantics on track completion.
package ui

import (
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pmoreau/cadence/pkg/library"
	"github.com/pmoreau/cadence/pkg/playback"
)

const (
	scrollMargin = 3 // Number of lines to keep as margin at top and bottom
	footerHeight = 7 // Now playing + progress + time + status lines
)

// pollInterval is the cadence of the completion poll. The poll is cheap (no
// I/O) so it doubles as the redraw rate.
const pollInterval = 100 * time.Millisecond

// VolumeControl is what the UI needs from the audio output directly; volume
// is a device concern, not part of the playback state machine.
type VolumeControl interface {
	VolumeUp()
	VolumeDown()
	ToggleMute() bool
	Level() float64
	Muted() bool
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type Model struct {
	ctl    *playback.Controller
	vol    VolumeControl
	tracks []library.Track
	rng    *rand.Rand

	cursor        int
	viewport      viewport.Model
	progress      progress.Model
	ready         bool
	width, height int
	showHelp      bool
	showTimeLeft  bool
	err           error

	styles struct {
		track   lipgloss.Style
		playing lipgloss.Style
		cursor  lipgloss.Style
		artist  lipgloss.Style
		status  lipgloss.Style
		time    lipgloss.Style
		help    lipgloss.Style
		errText lipgloss.Style
	}
}

func NewModel(catalog *library.Catalog, ctl *playback.Controller, vol VolumeControl) Model {
	m := Model{
		ctl:    ctl,
		vol:    vol,
		tracks: catalog.Tracks(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cursor: ctl.Index(),
		progress: progress.New(
			progress.WithScaledGradient("#FF7CCB", "#FDFF8C"),
		),
	}

	m.styles.track = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	m.styles.playing = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	m.styles.cursor = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	m.styles.artist = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	m.styles.status = lipgloss.NewStyle().Bold(true)
	m.styles.time = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	m.styles.help = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	m.styles.errText = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footerHeight
		}
		m.progress.Width = msg.Width - 20
		m.scrollToCursor()

	case tickMsg:
		// Natural completion check; the controller never raises this itself.
		if m.ctl.State() == playback.StatePlaying && m.ctl.Finished() {
			m.advance()
		}
		return m, tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "j", "down":
		m.cursor = (m.cursor + 1) % len(m.tracks)
		m.scrollToCursor()
	case "k", "up":
		m.cursor = (m.cursor - 1 + len(m.tracks)) % len(m.tracks)
		m.scrollToCursor()

	case "enter":
		m.err = m.ctl.Select(m.cursor)
	case " ":
		// Play the selection if it differs from the active track, otherwise
		// pause/resume.
		if m.cursor != m.ctl.Index() {
			m.err = m.ctl.Select(m.cursor)
		} else {
			m.ctl.TogglePause()
		}
	case "n":
		m.err = m.ctl.Next()
		m.followPlayback()
	case "p":
		m.err = m.ctl.Previous()
		m.followPlayback()

	case "s":
		m.ctl.ToggleShuffle()
	case "r":
		m.ctl.CycleRepeat()
	case "S":
		m.ctl.Stop()

	case "+", "=":
		m.vol.VolumeUp()
	case "-":
		m.vol.VolumeDown()
	case "m":
		m.vol.ToggleMute()

	case "t":
		m.showTimeLeft = !m.showTimeLeft
	case "?", "h":
		m.showHelp = true
	}
	return m, nil
}

// followPlayback moves the cursor to the active track.
func (m *Model) followPlayback() {
	m.cursor = m.ctl.Index()
	m.scrollToCursor()
}

// advance picks the follow-up track after natural completion. RepeatOne
// restarts the same track; with shuffle on, a random other track is chosen;
// otherwise play proceeds in catalog order, wrapping at the end.
func (m *Model) advance() {
	var err error
	switch {
	case m.ctl.Repeat() == playback.RepeatOne:
		err = m.ctl.Select(m.ctl.Index())
	case m.ctl.Shuffled() && m.ctl.TrackCount() > 1:
		err = m.ctl.Select(m.randomOther())
	default:
		err = m.ctl.Next()
	}
	m.err = err
	if err == nil {
		m.followPlayback()
	}
}

// randomOther returns a uniformly random index different from the current one.
func (m *Model) randomOther() int {
	i := m.rng.Intn(m.ctl.TrackCount() - 1)
	if i >= m.ctl.Index() {
		i++
	}
	return i
}

func (m *Model) scrollToCursor() {
	if !m.ready {
		return
	}
	if m.cursor < m.viewport.YOffset+scrollMargin {
		m.viewport.YOffset = max(0, m.cursor-scrollMargin)
	}
	if m.cursor >= m.viewport.YOffset+m.viewport.Height-scrollMargin {
		maxOffset := max(0, len(m.tracks)-m.viewport.Height+scrollMargin)
		m.viewport.YOffset = min(m.cursor-m.viewport.Height+1+scrollMargin, maxOffset)
	}
}
