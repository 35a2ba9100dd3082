package audioplayer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/tmc/voicecells/playback"
)

// Constants for the audio player UI
const (
	progressBarWidth = 30

	// DefaultPollInterval is how often a playing cell refreshes its progress.
	DefaultPollInterval = 100 * time.Millisecond
)

var (
	playIcon  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")).Render("▶")
	pauseIcon = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("⏸")
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	barStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// KeyMap defines the keybindings for the audio player
type KeyMap struct {
	Toggle key.Binding
}

// DefaultKeyMap returns a set of default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter/space", "play/pause"),
		),
	}
}

// TickMsg drives the progress poll of one cell. Gen is the poll generation
// it was scheduled under; a tick from an older generation is dropped.
type TickMsg struct {
	Cell int
	Gen  uint64
}

// Option configures a Model.
type Option func(*Model)

// WithPollInterval sets the progress refresh interval.
func WithPollInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithWidth sets the progress bar width in characters.
func WithWidth(w int) Option {
	return func(m *Model) {
		if w > 0 {
			m.Width = w
		}
	}
}

// Model is the playback binding of one recyclable message cell. It renders
// the state the coordinator reports for the message it is currently bound to
// and never carries state across a rebind.
type Model struct {
	KeyMap  KeyMap
	State   playback.State
	Elapsed time.Duration
	Total   time.Duration
	Width   int
	Focused bool
	// Err holds the last open failure until the next Bind or Tap.
	Err error

	cell     int
	coord    *playback.Coordinator
	identity playback.Identity
	source   playback.Source

	interval    time.Duration
	gen         uint64
	polling     bool
	unsubscribe func()
}

// New creates the binding for cell and subscribes it to coord's notices.
func New(cell int, coord *playback.Coordinator, opts ...Option) *Model {
	m := &Model{
		KeyMap:   DefaultKeyMap(),
		State:    playback.Stopped,
		Width:    progressBarWidth,
		cell:     cell,
		coord:    coord,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = coord.Subscribe(m.onNotice)
	return m
}

// Cell returns the cell number this binding was created for.
func (m *Model) Cell() int { return m.cell }

// Identity returns the message the cell is bound to, or playback.None.
func (m *Model) Identity() playback.Identity { return m.identity }

// Polling reports whether a progress poll is scheduled.
func (m *Model) Polling() bool { return m.polling }

// Bind assigns the cell to a message. Called on first display and on every
// reuse.
func (m *Model) Bind(id playback.Identity, src playback.Source) tea.Cmd {
	m.stopPoll()
	m.identity = id
	m.source = src
	m.Elapsed, m.Total = 0, 0
	m.Err = nil

	m.State = m.coord.Configure(id, src)
	if m.State == playback.Stopped {
		return nil
	}
	m.refresh()
	if m.State == playback.Playing {
		return m.startPoll()
	}
	return nil
}

// Tap toggles playback of the bound message.
func (m *Model) Tap() tea.Cmd {
	if m.identity == playback.None {
		return nil
	}
	m.Err = nil
	state, openCmd := m.coord.Toggle(m.identity, m.source)
	m.State = state
	log.Debug().Int("cell", m.cell).Str("message", string(m.identity)).Stringer("state", state).Msg("cell tapped")

	if state != playback.Playing {
		m.stopPoll()
		if state == playback.Stopped {
			m.Elapsed, m.Total = 0, 0
		}
		return openCmd
	}
	return tea.Batch(openCmd, m.startPoll())
}

// Reset prepares the cell for reuse: the poll is cancelled and the cell no
// longer represents any message.
func (m *Model) Reset() {
	m.stopPoll()
	m.identity = playback.None
	m.source = ""
	m.State = playback.Stopped
	m.Elapsed, m.Total = 0, 0
	m.Err = nil
}

// Dispose releases the cell for good.
func (m *Model) Dispose() {
	m.Reset()
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Update handles poll ticks addressed to this cell and the toggle key while
// focused.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case TickMsg:
		if msg.Cell != m.cell || msg.Gen != m.gen || !m.polling {
			return nil
		}
		if m.State != playback.Playing {
			m.polling = false
			return nil
		}
		m.refresh()
		return m.tickCmd()

	case tea.KeyMsg:
		if m.Focused && key.Matches(msg, m.KeyMap.Toggle) {
			return m.Tap()
		}
	}
	return nil
}

func (m *Model) onNotice(n playback.Notice) {
	if m.identity == playback.None || n.Identity != m.identity {
		return
	}
	m.stopPoll()
	m.State = playback.Stopped
	m.Elapsed, m.Total = 0, 0
	if n.Reason == playback.OpenFailed {
		m.Err = n.Err
	}
}

func (m *Model) startPoll() tea.Cmd {
	m.gen++
	m.polling = true
	m.refresh()
	return m.tickCmd()
}

// stopPoll cancels any scheduled tick. Ticks already in flight carry the old
// generation and are ignored when they arrive.
func (m *Model) stopPoll() {
	m.gen++
	m.polling = false
}

func (m *Model) tickCmd() tea.Cmd {
	cell, gen := m.cell, m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return TickMsg{Cell: cell, Gen: gen}
	})
}

func (m *Model) refresh() {
	m.Elapsed = m.coord.CurrentTime(m.identity)
	m.Total = m.coord.Duration(m.identity)
}

// Progress returns the playback progress in percent, 0 to 100.
func (m *Model) Progress() float64 {
	if m.Total <= 0 {
		return 0
	}
	p := float64(m.Elapsed) / float64(m.Total) * 100
	return math.Min(100, math.Max(0, p))
}

// Label returns the elapsed time as mm:ss.
func (m *Model) Label() string {
	return formatDuration(m.Elapsed.Seconds())
}

// View renders the audio player UI
func (m *Model) View() string {
	var audioLine strings.Builder

	if m.State == playback.Playing {
		audioLine.WriteString(pauseIcon)
	} else {
		audioLine.WriteString(playIcon)
	}

	// The progress bar and timer are hidden while stopped.
	if m.State != playback.Stopped {
		timestampStr := fmt.Sprintf("%s / %s", m.Label(), formatDuration(m.Total.Seconds()))
		filledWidth := int(m.Progress() / 100 * float64(m.Width))
		progressBar := strings.Repeat("━", filledWidth) + strings.Repeat("╌", m.Width-filledWidth)

		audioLine.WriteString(" ")
		audioLine.WriteString(timeStyle.Render(timestampStr))
		audioLine.WriteString(" ")
		audioLine.WriteString(barStyle.Render(progressBar))
	}

	if m.Focused {
		helpText := "[enter] play"
		switch m.State {
		case playback.Playing:
			helpText = "[enter] pause"
		case playback.Paused:
			helpText = "[enter] resume"
		}
		audioLine.WriteString(" ")
		audioLine.WriteString(helpStyle.Render(helpText))
	}

	if m.Err != nil {
		audioLine.WriteString(" ")
		audioLine.WriteString(errStyle.Render("can't play this clip"))
	}

	return audioLine.String()
}

// Focus sets focus on the audio player
func (m *Model) Focus() {
	m.Focused = true
}

// Blur removes focus from the audio player
func (m *Model) Blur() {
	m.Focused = false
}

// IsFocused returns whether the audio player is focused
func (m *Model) IsFocused() bool {
	return m.Focused
}

// formatDuration formats a duration in seconds as MM:SS
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	minutes := int(seconds) / 60
	remainingSeconds := int(seconds) % 60
	return fmt.Sprintf("%02d:%02d", minutes, remainingSeconds)
}
