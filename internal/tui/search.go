package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/vesperhq/vesper/internal/knowledge"
)

// Search message types for Bubble Tea.
type searchDoneMsg struct {
	resp *knowledge.SearchResponse
}

type searchErrorMsg struct {
	err error
}

// startSearch creates a command that runs one search against the engine.
// Bubble Tea runs the command in its own goroutine; a single-shot call
// delivers exactly one message back, so no channel plumbing is needed.
// The context carries the timeout and is released by Update when the
// message lands.
func (m *Model) startSearch(ctx context.Context, query string) tea.Cmd {
	engine := m.engine
	return func() (msg tea.Msg) {
		// A panic inside the engine must not leave the UI stuck in the
		// searching state.
		defer func() {
			if r := recover(); r != nil {
				slog.Error("search panic recovered", "panic", r)
				msg = searchErrorMsg{err: fmt.Errorf("search panic: %v", r)}
			}
		}()

		resp, err := engine.Search(ctx, query)
		if err != nil {
			return searchErrorMsg{err: err}
		}
		return searchDoneMsg{resp: resp}
	}
}

// renderResponse converts a search response to Markdown for the results
// viewport. Glamour turns it into styled terminal output. Gap fillers are
// marked so adjacency context is distinguishable from direct matches.
func renderResponse(resp *knowledge.SearchResponse) string {
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No passages matched %q. Check `/list` for what is indexed.", resp.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %d passages\n\n", len(resp.Results))
	if len(resp.Variants) > 1 {
		fmt.Fprintf(&b, "Searched as: %s\n\n", strings.Join(resp.Variants, ", "))
	}
	for i, res := range resp.Results {
		fmt.Fprintf(&b, "**%d. %s** (%s, similarity %.2f)", i+1, res.DocumentName, res.Kind, res.Similarity)
		if res.IsGapFiller {
			b.WriteString(" *adjacent context*")
		}
		b.WriteString("\n\n")
		for _, line := range strings.Split(res.Content, "\n") {
			b.WriteString("> ")
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d candidates in %s\n", resp.Candidates, resp.Elapsed.Round(time.Millisecond))
	return b.String()
}

// renderDocuments lists the registry for the /list command.
func renderDocuments(engine *knowledge.Engine) string {
	docs := engine.Documents()
	if len(docs) == 0 {
		return "No documents registered. Index one with `vesper index <file>`."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %d documents\n\n", len(docs))
	for _, doc := range docs {
		st := engine.Status(doc.ID)
		fmt.Fprintf(&b, "- **%s** `%s` (%s): %s", doc.Name, doc.ID, doc.Kind, st.State)
		if st.State == knowledge.StateIndexed {
			fmt.Fprintf(&b, ", %d vectors", st.VectorCount)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
