// Package voicecells provides a scrolling chat transcript whose voice
// messages are rendered by a small pool of recycled cells. All cells share a
// single playback coordinator, so at most one clip plays at a time no matter
// how often cells are reused while scrolling.
package voicecells

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tmc/voicecells/audioplayer"
	"github.com/tmc/voicecells/playback"
	"github.com/tmc/voicecells/settings"
	"github.com/tmc/voicecells/store"
)

// unbound marks a pool slot that shows no message.
const unbound = -1

// Model is the transcript view. It owns a fixed pool of cells sized to the
// window and rebinds them as the visible window of messages moves.
type Model struct {
	coord    *playback.Coordinator
	messages []store.Message
	byID     map[playback.Identity]int

	cells    []*audioplayer.Model
	bound    []int // message index shown by each pool slot
	nextCell int

	offset int // index of the first visible message
	cursor int // index of the selected message

	width  int
	height int

	title        string
	pollInterval time.Duration
	poolSize     int

	keys          keyMap
	help          help.Model
	settingsPanel settings.Model
	showSettings  bool
	quitting      bool
}

// New creates the transcript view over msgs, which must be in display order.
func New(coord *playback.Coordinator, msgs []store.Message, opts ...Option) (*Model, error) {
	if coord == nil {
		return nil, errors.New("voicecells: nil coordinator")
	}
	m := &Model{
		coord:         coord,
		messages:      msgs,
		byID:          make(map[playback.Identity]int, len(msgs)),
		title:         DefaultTitle,
		pollInterval:  DefaultPollInterval,
		keys:          defaultKeyMap(),
		help:          help.New(),
		settingsPanel: settings.New(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	for i, msg := range msgs {
		m.byID[playback.Identity(msg.ID)] = i
	}
	m.settingsPanel.PollInterval = m.pollInterval
	if m.poolSize > 0 {
		m.layout()
	}
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.settingsPanel, _ = m.settingsPanel.Update(msg)
		return m, m.layout()

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case playback.OpenResultMsg, playback.FinishedMsg:
		return m, m.coord.Update(msg)

	case audioplayer.TickMsg:
		for _, cell := range m.cells {
			if cell.Cell() == msg.Cell {
				return m, cell.Update(msg)
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.showSettings {
		m.settingsPanel, _ = m.settingsPanel.Update(msg)
		if !m.settingsPanel.IsFocused() {
			m.showSettings = false
		}
		if !key.Matches(msg, m.keys.Quit) {
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit()
		return tea.Quit
	case key.Matches(msg, m.keys.Up):
		return m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		return m.moveCursor(1)
	case key.Matches(msg, m.keys.PageUp):
		return m.moveCursor(-len(m.cells))
	case key.Matches(msg, m.keys.PageDown):
		return m.moveCursor(len(m.cells))
	case key.Matches(msg, m.keys.Home):
		return m.moveCursor(-len(m.messages))
	case key.Matches(msg, m.keys.End):
		return m.moveCursor(len(m.messages))
	case key.Matches(msg, m.keys.Stop):
		m.coord.Stop()
	case key.Matches(msg, m.keys.Settings):
		m.settingsPanel.PoolSize = len(m.cells)
		m.settingsPanel.Focus()
		m.showSettings = true
	default:
		if cell := m.cursorCell(); cell != nil {
			return cell.Update(msg)
		}
	}
	return nil
}

// quit stops playback and releases every cell.
func (m *Model) quit() {
	m.quitting = true
	for _, cell := range m.cells {
		cell.Dispose()
	}
	m.cells, m.bound = nil, nil
	m.coord.Close()
	log.Info().Msg("transcript closed")
}

// visibleRows returns how many cells fit the current window.
func (m *Model) visibleRows() int {
	if m.poolSize > 0 {
		return m.poolSize
	}
	n := (m.height - chromeHeight) / rowHeight
	if n < 1 {
		n = 1
	}
	return n
}

// layout grows or shrinks the cell pool to the window and rebinds it.
func (m *Model) layout() tea.Cmd {
	want := m.visibleRows()
	for len(m.cells) < want {
		cell := audioplayer.New(m.nextCell, m.coord,
			audioplayer.WithPollInterval(m.pollInterval),
			audioplayer.WithWidth(m.barWidth()),
		)
		m.nextCell++
		m.cells = append(m.cells, cell)
		m.bound = append(m.bound, unbound)
	}
	for len(m.cells) > want {
		last := len(m.cells) - 1
		m.cells[last].Dispose()
		m.cells, m.bound = m.cells[:last], m.bound[:last]
	}
	if w := m.barWidth(); w > 0 {
		for _, cell := range m.cells {
			cell.Width = w
		}
	}
	log.Debug().Int("cells", len(m.cells)).Msg("cell pool laid out")
	m.clampOffset()
	return m.rebind()
}

// barWidth returns the progress bar width that fits the window, or 0 while
// the window size is unknown.
func (m *Model) barWidth() int {
	if m.width <= 0 {
		return 0
	}
	return max(minBarWidth, min(maxBarWidth, m.width-audioChrome))
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	if len(m.messages) == 0 {
		return nil
	}
	m.cursor = max(0, min(len(m.messages)-1, m.cursor+delta))
	m.clampOffset()
	return m.rebind()
}

// clampOffset scrolls just enough to keep the cursor visible.
func (m *Model) clampOffset() {
	rows := len(m.cells)
	if rows == 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	m.offset = max(0, min(m.offset, max(0, len(m.messages)-rows)))
}

// rebind assigns each pool slot the message it should show. Slots whose
// message changed are reset before being bound again.
func (m *Model) rebind() tea.Cmd {
	var cmds []tea.Cmd
	for i, cell := range m.cells {
		idx := m.offset + i
		if idx >= len(m.messages) {
			idx = unbound
		}
		if m.bound[i] != idx {
			cell.Reset()
			m.bound[i] = idx
			if idx != unbound {
				if msg := m.messages[idx]; msg.HasAudio() {
					cmds = append(cmds, cell.Bind(playback.Identity(msg.ID), playback.Source(msg.AudioPath)))
				}
			}
		}
		if idx != unbound && idx == m.cursor {
			cell.Focus()
		} else {
			cell.Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) cursorCell() *audioplayer.Model {
	i := m.cursor - m.offset
	if i < 0 || i >= len(m.cells) {
		return nil
	}
	return m.cells[i]
}

// Cells returns the cell pool in display order.
func (m *Model) Cells() []*audioplayer.Model { return m.cells }

// Cursor returns the index of the selected message.
func (m *Model) Cursor() int { return m.cursor }

// Offset returns the index of the first visible message.
func (m *Model) Offset() int { return m.offset }
