package voicecells

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tmc/voicecells/playback"
	"github.com/tmc/voicecells/store"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if len(m.messages) == 0 {
		b.WriteString(statusStyle.Render("No messages. Run `voicecells seed` to add some."))
		b.WriteString("\n")
	}
	for i, cell := range m.cells {
		idx := m.bound[i]
		if idx == unbound {
			continue
		}
		b.WriteString(m.renderRow(idx, cell.View()))
	}

	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	main := b.String()
	if m.showSettings {
		return lipgloss.JoinHorizontal(lipgloss.Top, main, m.settingsPanel.View())
	}
	return main
}

// renderRow renders one message as exactly rowHeight lines.
func (m *Model) renderRow(idx int, audio string) string {
	msg := m.messages[idx]

	marker := "  "
	if idx == m.cursor {
		marker = cursorStyle.Render("› ")
	}

	sender := senderStyle
	if strings.EqualFold(msg.Sender, "system") {
		sender = senderSystemStyle
	}

	header := marker + sender.Render(msg.Sender)
	if !msg.CreatedAt.IsZero() {
		header += " " + timestampStyle.Render(msg.CreatedAt.Format("15:04"))
	}

	body := truncate(msg.Body, m.width-2)
	if !msg.HasAudio() {
		audio = ""
	}
	return fmt.Sprintf("%s\n  %s\n  %s\n", header, body, audio)
}

// statusLine describes what the coordinator is playing.
func (m *Model) statusLine() string {
	snap := m.coord.Snapshot()
	if snap.Active == playback.None {
		return "nothing playing"
	}
	who := string(snap.Active)
	if idx, ok := m.byID[snap.Active]; ok {
		who = describe(m.messages[idx])
	}
	return fmt.Sprintf("%s: %s", snap.State, who)
}

func describe(msg store.Message) string {
	if msg.CreatedAt.IsZero() {
		return msg.Sender
	}
	return fmt.Sprintf("%s at %s", msg.Sender, msg.CreatedAt.Format("15:04"))
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
