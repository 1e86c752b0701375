// Package scrollview is a Bubble Tea renderer over a vscroll.ScrollManager.
// It owns nothing about windowing itself — every frame it reads the
// manager's published VisibleSet and reports back which rows are on screen
// through OnScroll, exactly the renderer contract spec.md §4.5 describes.
package scrollview

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/vscroll/internal/feedstore"
	"github.com/marcus/vscroll/internal/vscroll"
)

// PollInterval is how often the model re-reads the manager's VisibleSet.
// Grounded on the teacher monitor's refresh-tick pattern rather than a
// direct Program.Send callback, so the model has no dependency on holding
// a *tea.Program reference before Init runs.
const PollInterval = 100 * time.Millisecond

// Model is the Bubble Tea model for a scrollable message feed.
type Model struct {
	Mgr *vscroll.ScrollManager[feedstore.Message]
	vp  viewport.Model

	Width  int
	Height int

	VisibleSet vscroll.VisibleSet[feedstore.Message]
	Offset     int // index of the topmost on-screen row within VisibleSet.Items

	ShowHelp bool
	Err      error
}

// NewModel constructs a Model over an already-started manager.
func NewModel(mgr *vscroll.ScrollManager[feedstore.Message]) Model {
	return Model{Mgr: mgr, vp: viewport.New(0, 0)}
}

// visibleSetMsg carries a freshly read VisibleSet into Update.
type visibleSetMsg vscroll.VisibleSet[feedstore.Message]

// tickMsg triggers the next poll.
type tickMsg time.Time

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.readVisibleSet(), m.scheduleTick())
}

func (m Model) readVisibleSet() tea.Cmd {
	return func() tea.Msg {
		return visibleSetMsg(m.Mgr.VisibleSet().Get())
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(PollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) rowsPerScreen() int {
	h := m.Height - 2 // header + help line
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.vp.Width = m.Width - 2
		m.vp.Height = m.rowsPerScreen()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.readVisibleSet(), m.scheduleTick())

	case visibleSetMsg:
		m.VisibleSet = vscroll.VisibleSet[feedstore.Message](msg)
		m.Err = m.VisibleSet.Error
		if len(m.VisibleSet.Items) <= m.rowsPerScreen() {
			m.Offset = 0
		} else if m.Offset > len(m.VisibleSet.Items)-m.rowsPerScreen() {
			m.Offset = len(m.VisibleSet.Items) - m.rowsPerScreen()
		}
		m.vp.SetContent(m.renderRows())
		m.vp.YOffset = m.Offset
		if m.VisibleSet.ShouldAutoScroll {
			m.vp.GotoBottom()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.ShowHelp = !m.ShowHelp
		return m, nil

	case "j", "down":
		return m.scroll(1, false), nil

	case "k", "up":
		return m.scroll(-1, true), nil
	}
	return m, nil
}

// scroll moves the visible window by delta rows and reports the resulting
// edges to the manager. backward tells the manager which direction the
// user is scrolling, independent of delta's sign conventions.
func (m Model) scroll(delta int, backward bool) Model {
	items := m.VisibleSet.Items
	if len(items) == 0 {
		return m
	}
	rows := m.rowsPerScreen()
	offset := m.Offset + delta
	if offset < 0 {
		offset = 0
	}
	if maxOffset := len(items) - rows; maxOffset > 0 && offset > maxOffset {
		offset = maxOffset
	}
	m.Offset = offset
	m.vp.YOffset = offset

	lastIdx := offset + rows - 1
	if lastIdx >= len(items) {
		lastIdx = len(items) - 1
	}
	first := items[offset].EntityID()
	last := items[lastIdx].EntityID()
	m.Mgr.OnScroll(first, last, backward)
	return m
}

func (m Model) View() string {
	return m.renderView()
}

// renderRows formats every currently-loaded message as one viewport line.
func (m Model) renderRows() string {
	items := m.VisibleSet.Items
	lines := make([]string, len(items))
	for i, msg := range items {
		lines[i] = m.renderRow(i, msg)
	}
	return joinLines(lines)
}

// Start is a convenience wrapper calling Mgr.Start before the Bubble Tea
// program is run, so a caller building this into a cmd can fail fast.
func Start(ctx context.Context, mgr *vscroll.ScrollManager[feedstore.Message]) (Model, error) {
	if err := mgr.Start(ctx); err != nil {
		return Model{}, err
	}
	return NewModel(mgr), nil
}
