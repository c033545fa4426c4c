// Package tui provides the Bubble Tea terminal interface for searching
// the knowledge base.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateInput     State = iota // Awaiting query input
	StateSearching              // Search in flight
	StateResults                // Results on screen
)

// Memory bounds to prevent unbounded growth.
const (
	maxMessages = 100 // Maximum transcript entries stored
	maxHistory  = 100 // Maximum query history entries
)

// searchTimeout bounds a single search: one embedding round trip plus an
// in-memory scan. Anything longer means the backend is gone.
const searchTimeout = 30 * time.Second

// Transcript entry roles for consistent display.
const (
	roleQuery  = "query"
	roleResult = "result"
	roleSystem = "system"
	roleError  = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Two separator lines (above and below input)
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// Message is one transcript entry: a submitted query, a rendered result
// block, or a system/error notice.
type Message struct {
	Role string // "query", "result", "system", "error"
	Text string
}

// Model is the Bubble Tea model for the search interface.
type Model struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state          State
	resultsFocused bool // Tab moves the arrow keys between input history and results
	lastCtrlC      time.Time

	// Output
	spinner  spinner.Model
	viewBuf  strings.Builder // Reusable buffer for View() to reduce allocations
	messages []Message

	// Scrollable results viewport
	viewport viewport.Model

	// Help bar for keyboard shortcuts
	help help.Model
	keys keyMap

	// In-flight search; nil when idle
	searchCancel context.CancelFunc

	// Dependencies (direct, no interface)
	engine    *knowledge.Engine
	ctx       context.Context
	ctxCancel context.CancelFunc // For canceling everything on exit

	// Dimensions
	width  int
	height int

	// Styles
	styles Styles

	// Markdown rendering (nil = graceful degradation to plain text)
	markdown *markdownRenderer
}

// addMessage appends a transcript entry and enforces the maxMessages bound.
func (m *Model) addMessage(msg Message) {
	m.messages = append(m.messages, msg)
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}
}

// New creates a Model over the given engine.
// Returns error if required dependencies are nil.
//
// IMPORTANT: ctx MUST be the same context passed to tea.WithContext()
// to ensure consistent cancellation behavior.
func New(ctx context.Context, engine *knowledge.Engine) (*Model, error) {
	if engine == nil {
		return nil, errors.New("tui.New: engine is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	// Create cancellable context for cleanup on exit
	ctx, cancel := context.WithCancel(ctx)

	// Textarea for the query. Enter submits, Shift+Enter adds a newline
	// (default behavior).
	ta := textarea.New()
	ta.Placeholder = "Search your documents..."
	ta.SetHeight(1)  // Single line by default
	ta.SetWidth(120) // Wide enough for long queries, updated on WindowSizeMsg
	ta.MaxWidth = 0  // No max width limit
	ta.ShowLineNumbers = false

	// No background colors, just plain text with a gray placeholder
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Viewport for the scrollable results transcript. Built-in keyboard
	// handling is disabled, keys are routed explicitly in handleKey so
	// they never fight the textarea or history navigation.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	h := help.New()

	return &Model{
		engine:    engine,
		ctx:       ctx,
		ctxCancel: cancel,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		help:      h,
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		history:   make([]string, 0, maxHistory),
		markdown:  newMarkdownRenderer(80),
		width:     80, // Default width until WindowSizeMsg arrives
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(), // Ensure the textarea is focused on startup
	)
}
