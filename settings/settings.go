package settings

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Model represents the settings panel state
type Model struct {
	Width        int
	Height       int
	Focused      bool
	DBPath       string
	PollInterval time.Duration
	SampleRate   int
	PoolSize     int
	AudioTrace   bool
}

// New creates a new settings model
func New() Model {
	return Model{
		DBPath:       "voicecells.db",
		PollInterval: 100 * time.Millisecond,
		SampleRate:   44100,
	}
}

// minWidth is the narrowest the panel gets before it takes the whole window.
const minWidth = 32

// panelWidth gives the panel a third of the window, widening it on narrow
// terminals so the values do not wrap.
func panelWidth(window int) int {
	w := window / 3
	if w < minWidth {
		w = min(minWidth, window)
	}
	return max(w, 0)
}

// Init initializes the settings model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles updating the settings model
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = panelWidth(msg.Width)
		m.Height = msg.Height
	case tea.KeyMsg:
		if !m.Focused {
			return m, nil
		}

		if msg.String() == "esc" {
			m.Focused = false
		}
	}

	return m, nil
}

// View renders the settings panel
func (m Model) View() string {
	if !m.Focused {
		return ""
	}

	style := lipgloss.NewStyle().
		Width(m.Width).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	content := fmt.Sprintf("Settings\n\nDatabase: %s\nSample Rate: %d Hz\nPoll Interval: %s\nVisible Cells: %d\nAudio Trace: %t\n\nPress ESC to close",
		m.DBPath, m.SampleRate, m.PollInterval, m.PoolSize, m.AudioTrace)

	return style.Render(content)
}

// Focus sets focus on the settings panel
func (m *Model) Focus() {
	m.Focused = true
}

// Blur removes focus from the settings panel
func (m *Model) Blur() {
	m.Focused = false
}

// IsFocused returns whether the settings panel is focused
func (m Model) IsFocused() bool {
	return m.Focused
}
