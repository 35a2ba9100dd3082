package voicecells

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DefaultTitle is shown in the header unless overridden.
const DefaultTitle = "voicecells"

// DefaultPollInterval is how often a playing cell refreshes its progress.
const DefaultPollInterval = 100 * time.Millisecond

// rowHeight is the number of lines one message cell occupies.
const rowHeight = 3

// chromeHeight is the number of lines used by header, status and help.
const chromeHeight = 4

// Progress bar bounds. audioChrome is the rest of an audio line: indent,
// icon, timer and help text.
const (
	minBarWidth = 10
	maxBarWidth = 60
	audioChrome = 36
)

// Styles
var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")) // Magenta
	senderStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // Cyan
	senderSystemStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8")) // Gray
	timestampStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle       = lipgloss.NewStyle().Faint(true)
	cursorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")) // Bright Green
)
