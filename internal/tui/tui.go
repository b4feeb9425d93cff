// Package tui implements the interactive terminal browser: a filterable
// session list on the left, the selected conversation on the right.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/iksnae/aichat-history/internal"
)

type browseMode int

const (
	modeList browseMode = iota
	modeFilter
)

// message types

type sessionsLoadedMsg struct {
	sessions []internal.Session
	warnings []string
	err      error
}

type messagesLoadedMsg struct {
	sessionID string
	content   string
	err       error
}

// model

type model struct {
	registry *internal.Registry
	source   string

	mode        browseMode
	sessions    []internal.Session
	visible     []internal.Session
	filter      string
	filterInput textinput.Model
	cursor      int
	listOffset  int
	viewport    viewport.Model
	viewedID    string
	warnings    []string
	loadErr     string
	width       int
	height      int
	ready       bool
	quitting    bool
}

func newModel(registry *internal.Registry, source string) model {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	return model{
		registry:    registry,
		source:      source,
		filterInput: ti,
		viewport:    viewport.New(0, 0),
	}
}

// Run starts the browser and blocks until the user quits. Source narrows the
// listing to one backend; empty means all.
func Run(registry *internal.Registry, source string) error {
	p := tea.NewProgram(newModel(registry, source), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

// Init triggers the initial session load.
func (m model) Init() tea.Cmd {
	return loadSessionsCmd(m.registry, m.source)
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		wasViewing := m.viewedID
		m.viewport = viewport.New(m.viewportWidth(), m.panelHeight())
		m.viewport.SetContent(m.placeholder())
		m.viewedID = ""
		m.adjustListScroll(m.panelHeight())
		// Re-render the open conversation at the new width.
		if wasViewing != "" && m.cursor < len(m.visible) && m.visible[m.cursor].ID == wasViewing {
			return m, loadMessagesCmd(m.registry, m.visible[m.cursor], m.viewportWidth())
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == modeFilter {
			return m.updateFilter(msg)
		}
		return m.updateList(msg)

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
			m.sessions = nil
		} else {
			m.loadErr = ""
			m.sessions = msg.sessions
		}
		m.warnings = msg.warnings
		m.applyFilter()
		return m, nil

	case messagesLoadedMsg:
		// Drop stale loads: the selection may have moved on.
		if m.cursor >= len(m.visible) || len(m.visible) == 0 || m.visible[m.cursor].ID != msg.sessionID {
			return m, nil
		}
		if msg.err != nil {
			m.viewport.SetContent(styleRoleError.Render("Error: " + msg.err.Error()))
		} else {
			m.viewport.SetContent(msg.content)
			m.viewport.GotoTop()
		}
		m.viewedID = msg.sessionID
		return m, nil
	}

	return m, nil
}

func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		m.mode = modeList
		m.filterInput.Blur()
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if v := m.filterInput.Value(); v != m.filter {
		m.filter = v
		m.applyFilter()
	}
	return m, cmd
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Filter):
		m.mode = modeFilter
		m.filterInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, keys.Reload):
		return m, loadSessionsCmd(m.registry, m.source)

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.adjustListScroll(m.panelHeight())
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
			m.adjustListScroll(m.panelHeight())
		}
		return m, nil

	case key.Matches(msg, keys.Enter):
		if len(m.visible) > 0 && m.cursor < len(m.visible) {
			sess := m.visible[m.cursor]
			if sess.ID != m.viewedID {
				return m, loadMessagesCmd(m.registry, sess, m.viewportWidth())
			}
		}
		return m, nil

	case key.Matches(msg, keys.ViewUp):
		m.viewport.LineUp(m.panelHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.ViewDn):
		m.viewport.LineDown(m.panelHeight() / 2)
		return m, nil
	}

	return m, nil
}

// applyFilter recomputes the visible slice and clamps the cursor.
func (m *model) applyFilter() {
	visible := make([]internal.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		if matchesFilter(sess, m.filter) {
			visible = append(visible, sess)
		}
	}
	m.visible = visible
	if m.cursor >= len(visible) {
		m.cursor = len(visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.listOffset = 0
	m.adjustListScroll(m.panelHeight())
}

// View renders the full browser.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	viewW := m.viewportWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.viewport.Width = viewW
	m.viewport.Height = panelH
	viewPanel := styleActiveBorder.
		Width(viewW).
		Height(panelH).
		Render(m.viewport.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, viewPanel)

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

func (m model) placeholder() string {
	return styleTranscriptMeta.Render("Select a session and press enter to load it.")
}

func (m model) statusBar() string {
	parts := []string{fmt.Sprintf("%d/%d sessions", len(m.visible), len(m.sessions))}
	if m.loadErr != "" {
		parts = append(parts, "error: "+m.loadErr)
	} else if len(m.warnings) > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", len(m.warnings)))
	}
	parts = append(parts, "/ filter", "enter open", "r reload", "q quit")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) viewportWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Input row, status bar and borders eat six lines.
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}
