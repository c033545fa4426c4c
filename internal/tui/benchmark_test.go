package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// newBenchmarkModel creates a Model for benchmarking with minimal setup.
func newBenchmarkModel() *Model {
	ta := textarea.New()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		state:    StateInput,
		input:    ta,
		spinner:  sp,
		history:  make([]string, 0, maxHistory),
		messages: make([]Message, 0, maxMessages),
		styles:   DefaultStyles(),
		markdown: newMarkdownRenderer(80),
		width:    80,
		height:   24,
		ctx:      context.Background(),
	}
}

// benchmarkResponse is a realistic three-passage search response.
func benchmarkResponse() *knowledge.SearchResponse {
	return &knowledge.SearchResponse{
		Query:    "harbor access",
		Variants: []string{"harbor access", "port entry rules"},
		Results: []knowledge.SearchResult{
			{
				DocumentName: "Port Handbook",
				Kind:         knowledge.KindUploadedFile,
				Content:      "The harbor spans three piers. Pier one is open to the public during daylight hours.",
				Similarity:   0.91,
			},
			{
				DocumentName: "Port Handbook",
				Kind:         knowledge.KindUploadedFile,
				Content:      "Pier two handles freight only. Visitor access requires an escort badge.",
				Similarity:   0.78,
			},
			{
				DocumentName: "Port Handbook",
				Kind:         knowledge.KindUploadedFile,
				Content:      "Badges are issued at the harbormaster office next to the dry dock.",
				Similarity:   0.55,
				IsGapFiller:  true,
			},
		},
		Candidates: 40,
		Elapsed:    18 * time.Millisecond,
	}
}

// BenchmarkModel_View measures View rendering performance.
func BenchmarkModel_View(b *testing.B) {
	b.Run("empty", func(b *testing.B) {
		m := newBenchmarkModel()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = m.View()
		}
	})

	b.Run("10_messages", func(b *testing.B) {
		m := newBenchmarkModel()
		for i := 0; i < 10; i++ {
			m.addMessage(Message{Role: roleQuery, Text: "where do visitor badges get issued"})
			m.addMessage(Message{Role: roleResult, Text: renderResponse(benchmarkResponse())})
		}
		m.rebuildViewportContent()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = m.View()
		}
	})

	b.Run("50_messages", func(b *testing.B) {
		m := newBenchmarkModel()
		for i := 0; i < 50; i++ {
			m.addMessage(Message{Role: roleQuery, Text: "where do visitor badges get issued"})
			m.addMessage(Message{Role: roleResult, Text: renderResponse(benchmarkResponse())})
		}
		m.rebuildViewportContent()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = m.View()
		}
	})

	b.Run("max_messages", func(b *testing.B) {
		m := newBenchmarkModel()
		for i := 0; i < maxMessages; i++ {
			m.addMessage(Message{Role: roleQuery, Text: "a long query with some realistic content to size the transcript"})
		}
		m.rebuildViewportContent()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = m.View()
		}
	})

	b.Run("searching_state", func(b *testing.B) {
		m := newBenchmarkModel()
		m.state = StateSearching
		for i := 0; i < 10; i++ {
			m.addMessage(Message{Role: roleQuery, Text: "hello"})
			m.addMessage(Message{Role: roleResult, Text: "Response"})
		}
		m.rebuildViewportContent()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = m.View()
		}
	})

	b.Run("large_messages", func(b *testing.B) {
		m := newBenchmarkModel()
		largeText := strings.Repeat("This is a large passage with lots of content. ", 100)
		for i := 0; i < 20; i++ {
			m.addMessage(Message{Role: roleResult, Text: largeText})
		}
		m.rebuildViewportContent()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = m.View()
		}
	})
}

// BenchmarkModel_AddMessage measures message addition performance.
func BenchmarkModel_AddMessage(b *testing.B) {
	b.Run("single", func(b *testing.B) {
		m := newBenchmarkModel()
		msg := Message{Role: roleQuery, Text: "Hello"}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.messages = m.messages[:0] // Reset to avoid bounds trimming
			m.addMessage(msg)
		}
	})

	b.Run("with_bounds_check", func(b *testing.B) {
		m := newBenchmarkModel()
		// Pre-fill to near capacity
		for i := 0; i < maxMessages-1; i++ {
			m.messages = append(m.messages, Message{Role: roleQuery, Text: "test"})
		}
		msg := Message{Role: roleQuery, Text: "Hello"}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.addMessage(msg)
			// Remove one to stay near capacity
			if len(m.messages) > maxMessages-1 {
				m.messages = m.messages[1:]
			}
		}
	})

	b.Run("at_capacity", func(b *testing.B) {
		m := newBenchmarkModel()
		// Fill to capacity
		for i := 0; i < maxMessages; i++ {
			m.messages = append(m.messages, Message{Role: roleQuery, Text: "test"})
		}
		msg := Message{Role: roleQuery, Text: "Hello"}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.addMessage(msg)
		}
	})
}

// BenchmarkModel_Update measures Update loop performance.
func BenchmarkModel_Update(b *testing.B) {
	b.Run("key_press", func(b *testing.B) {
		m := newBenchmarkModel()
		key := tea.Key{Code: 'a'}
		msg := tea.KeyPressMsg(key)
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			model, _ := m.Update(msg)
			m = model.(*Model)
		}
	})

	b.Run("window_resize", func(b *testing.B) {
		m := newBenchmarkModel()
		msg := tea.WindowSizeMsg{Width: 120, Height: 40}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			model, _ := m.Update(msg)
			m = model.(*Model)
		}
	})

	b.Run("search_done", func(b *testing.B) {
		m := newBenchmarkModel()
		msg := searchDoneMsg{resp: benchmarkResponse()}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.state = StateSearching
			model, _ := m.Update(msg)
			m = model.(*Model)
			m.messages = m.messages[:0] // Reset to avoid unbounded growth
		}
	})
}

// BenchmarkModel_NavigateHistory measures history navigation performance.
func BenchmarkModel_NavigateHistory(b *testing.B) {
	b.Run("small_history", func(b *testing.B) {
		m := newBenchmarkModel()
		m.history = []string{"one", "two", "three"}
		m.historyIdx = 1
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			model, _ := m.navigateHistory(-1)
			m = model.(*Model)
			if m.historyIdx == 0 {
				m.historyIdx = len(m.history)
			}
		}
	})

	b.Run("large_history", func(b *testing.B) {
		m := newBenchmarkModel()
		for i := 0; i < maxHistory; i++ {
			m.history = append(m.history, "history entry "+string(rune('a'+i%26)))
		}
		m.historyIdx = maxHistory / 2
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			model, _ := m.navigateHistory(-1)
			m = model.(*Model)
			if m.historyIdx == 0 {
				m.historyIdx = len(m.history)
			}
		}
	})
}

// BenchmarkRenderResponse measures result formatting performance.
func BenchmarkRenderResponse(b *testing.B) {
	b.Run("three_results", func(b *testing.B) {
		resp := benchmarkResponse()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = renderResponse(resp)
		}
	})

	b.Run("empty", func(b *testing.B) {
		resp := &knowledge.SearchResponse{Query: "nothing"}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = renderResponse(resp)
		}
	})

	b.Run("large_passages", func(b *testing.B) {
		resp := benchmarkResponse()
		large := strings.Repeat("A long passage line that wraps several times on a terminal.\n", 40)
		for i := range resp.Results {
			resp.Results[i].Content = large
		}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = renderResponse(resp)
		}
	})
}

// BenchmarkMarkdownRenderer measures markdown rendering performance.
func BenchmarkMarkdownRenderer(b *testing.B) {
	b.Run("short_text", func(b *testing.B) {
		mr := newMarkdownRenderer(80)
		text := "Hello **world**!"
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = mr.Render(text)
		}
	})

	b.Run("blockquote", func(b *testing.B) {
		mr := newMarkdownRenderer(80)
		text := "> The harbor spans three piers.\n> Pier two handles freight only.\n"
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = mr.Render(text)
		}
	})

	b.Run("long_text", func(b *testing.B) {
		mr := newMarkdownRenderer(80)
		text := strings.Repeat("This is a paragraph with **bold** and *italic* text. ", 50)
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = mr.Render(text)
		}
	})

	b.Run("search_response", func(b *testing.B) {
		mr := newMarkdownRenderer(80)
		text := renderResponse(benchmarkResponse())
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = mr.Render(text)
		}
	})

	b.Run("update_width", func(b *testing.B) {
		mr := newMarkdownRenderer(80)
		widths := []int{80, 120, 40, 100, 60}
		b.ResetTimer()
		b.ReportAllocs()
		for i := range b.N {
			mr.UpdateWidth(widths[i%len(widths)])
		}
	})
}

// BenchmarkStyles measures style rendering performance.
func BenchmarkStyles(b *testing.B) {
	b.Run("render_banner", func(b *testing.B) {
		styles := DefaultStyles()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = styles.RenderBanner()
		}
	})

	b.Run("render_welcome_tips", func(b *testing.B) {
		styles := DefaultStyles()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = styles.RenderWelcomeTips()
		}
	})

	b.Run("default_styles", func(b *testing.B) {
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			_ = DefaultStyles()
		}
	})
}

// BenchmarkModel_HandleSlashCommand measures slash command handling performance.
func BenchmarkModel_HandleSlashCommand(b *testing.B) {
	b.Run("help", func(b *testing.B) {
		m := newBenchmarkModel()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.messages = m.messages[:0] // Reset messages
			model, _ := m.handleSlashCommand("/help")
			m = model.(*Model)
		}
	})

	b.Run("clear", func(b *testing.B) {
		m := newBenchmarkModel()
		for i := 0; i < 10; i++ {
			m.addMessage(Message{Role: roleQuery, Text: "test"})
		}
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.messages = []Message{{Role: roleQuery, Text: "test"}}
			model, _ := m.handleSlashCommand("/clear")
			m = model.(*Model)
		}
	})

	b.Run("unknown", func(b *testing.B) {
		m := newBenchmarkModel()
		b.ResetTimer()
		b.ReportAllocs()
		for b.Loop() {
			m.messages = m.messages[:0]
			model, _ := m.handleSlashCommand("/unknown")
			m = model.(*Model)
		}
	})
}
