package tui

import (
	"context"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp  = "/help"
	cmdList  = "/list"
	cmdClear = "/clear"
	cmdExit  = "/exit"
	cmdQuit  = "/quit"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Search     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Focus      key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Search:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Focus:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "results")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "quit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

//nolint:gocyclo // Keyboard handler requires branching for all key combinations
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	// Check for Ctrl modifier
	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			cmd := m.cleanup()
			return m, cmd
		}
	}

	// Check special keys
	switch k.Code {
	case tea.KeyEnter:
		if m.state != StateSearching {
			// Enter without Shift = search
			// Shift+Enter = newline (pass through to textarea)
			if k.Mod&tea.ModShift == 0 {
				return m.handleSearch()
			}
		}

	case tea.KeyTab:
		if m.state != StateSearching {
			return m.toggleFocus()
		}

	case tea.KeyUp:
		if m.resultsFocused {
			m.viewport.PageUp()
			return m, nil
		}
		// Up at first line navigates history, otherwise pass to textarea
		if m.state != StateSearching && m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		if m.resultsFocused {
			m.viewport.PageDown()
			return m, nil
		}
		// Down at last line navigates history, otherwise pass to textarea
		if m.state != StateSearching && m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyEscape:
		switch {
		case m.state == StateSearching:
			// The canceled search still delivers exactly one message;
			// the "(Canceled)" notice lands when it does.
			m.cancelSearch()
			return m, nil
		case m.resultsFocused:
			return m.toggleFocus()
		default:
			cmd := m.cleanup()
			return m, cmd
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// Typing must not land in a blurred input
	if m.resultsFocused {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second = quit
	if now.Sub(m.lastCtrlC) < time.Second {
		cmd := m.cleanup()
		return m, cmd
	}
	m.lastCtrlC = now

	switch m.state {
	case StateInput, StateResults:
		m.input.Reset()
		return m, nil

	case StateSearching:
		m.cancelSearch()
		return m, nil
	}

	return m, nil
}

// toggleFocus moves keyboard focus between the query input and the
// results viewport.
func (m *Model) toggleFocus() (tea.Model, tea.Cmd) {
	m.resultsFocused = !m.resultsFocused
	if m.resultsFocused {
		m.input.Blur()
		return m, nil
	}
	return m, m.input.Focus()
}

func (m *Model) handleSearch() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}

	// Handle slash commands
	if strings.HasPrefix(query, "/") {
		return m.handleSlashCommand(query)
	}

	// Add to history (enforce maxHistory cap)
	m.history = append(m.history, query)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)

	m.addMessage(Message{Role: roleQuery, Text: query})
	m.input.Reset()
	m.state = StateSearching

	// The context outlives this handler; it is released when the result
	// message lands or the search is canceled.
	ctx, cancel := context.WithTimeout(m.ctx, searchTimeout)
	m.searchCancel = cancel

	m.rebuildViewportContent()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		m.startSearch(ctx, query),
	)
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case cmdHelp:
		m.addMessage(Message{
			Role: roleSystem,
			Text: "Commands: " + cmdHelp + ", " + cmdList + ", " + cmdClear + ", " + cmdExit + "\nShortcuts:\n  Enter: search\n  Shift+Enter: new line\n  Tab: focus results\n  Ctrl+C: cancel/clear\n  Esc: quit\n  Up/Down: history\n  PgUp/PgDn: scroll",
		})
	case cmdList:
		m.addMessage(Message{Role: roleResult, Text: renderDocuments(m.engine)})
	case cmdClear:
		m.messages = nil
	case cmdExit, cmdQuit:
		cleanupCmd := m.cleanup()
		return m, cleanupCmd
	default:
		m.addMessage(Message{
			Role: roleError,
			Text: "Unknown command: " + cmd,
		})
	}
	m.input.Reset()
	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, nil
}

func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	m.historyIdx += delta

	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx > len(m.history) {
		m.historyIdx = len(m.history)
	}

	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.historyIdx])
		// Move cursor to end of text
		m.input.CursorEnd()
	}

	return m, nil
}

// cancelSearch cancels the in-flight search context, releasing its timer.
func (m *Model) cancelSearch() {
	if m.searchCancel != nil {
		m.searchCancel()
		m.searchCancel = nil
	}
}

// cleanup cancels any in-flight search and returns the quit command.
func (m *Model) cleanup() tea.Cmd {
	// Cancel the main context first, it covers everything using m.ctx
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}

	// Then the search context (may already be canceled via parent)
	m.cancelSearch()

	return tea.Quit
}
