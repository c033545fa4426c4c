package knowledge

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// expansionPrompt asks for alternate phrasings as a bare numbered list. The
// parser tolerates nothing else, so any drift in the model's output simply
// degrades to single-query search.
const expansionPrompt = `Rewrite the following search query %d different ways to improve retrieval recall.
Each rewrite must preserve the original meaning while varying the wording.
Return ONLY a numbered list, one rewrite per line, no explanations.

Query: %s`

// ExpansionConfig configures multi-query expansion.
type ExpansionConfig struct {
	Enabled bool
	Model   string
	Count   int
	Timeout time.Duration
}

// QueryExpander produces alternate phrasings of a search query through an
// LLM. Expansion is best-effort: any failure, including a disabled or nil
// expander, degrades to the original query alone and never surfaces an
// error.
type QueryExpander struct {
	g       *genkit.Genkit
	model   string
	count   int
	timeout time.Duration
	logger  *slog.Logger
}

// NewQueryExpander creates an expander. count defaults to
// DefaultExpansionCount and is capped at MaxExpansionCount.
func NewQueryExpander(g *genkit.Genkit, cfg ExpansionConfig, logger *slog.Logger) *QueryExpander {
	if logger == nil {
		logger = slog.Default()
	}

	count := cfg.Count
	if count <= 0 {
		count = DefaultExpansionCount
	}
	if count > MaxExpansionCount {
		count = MaxExpansionCount
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultExpansionTimeout
	}

	return &QueryExpander{
		g:       g,
		model:   cfg.Model,
		count:   count,
		timeout: timeout,
		logger:  logger,
	}
}

// Expand returns the original query plus up to count alternate phrasings.
// The original is always present and always first.
func (e *QueryExpander) Expand(ctx context.Context, query string) QueryExpansion {
	expansion := QueryExpansion{Original: query}
	if e == nil || e.g == nil || e.count <= 0 {
		return expansion
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	opts := []ai.GenerateOption{
		ai.WithPrompt(expansionPrompt, e.count, query),
	}
	if e.model != "" {
		opts = append(opts, ai.WithModelName(e.model))
	}

	response, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		e.logger.Debug("query expansion failed, searching with original only", "error", err)
		return expansion
	}

	expansion.Alternates = parseNumberedList(response.Text(), query, e.count)
	if len(expansion.Alternates) == 0 {
		e.logger.Debug("query expansion returned no usable rewrites")
	}
	return expansion
}

// parseNumberedList extracts list items from an LLM response. Lines must
// carry a leading list marker; anything else is dropped. Duplicates of each
// other or of the original query are dropped case-insensitively.
func parseNumberedList(text, original string, limit int) []string {
	seen := map[string]bool{
		strings.ToLower(strings.TrimSpace(original)): true,
	}

	var items []string
	for _, line := range strings.Split(text, "\n") {
		item, ok := stripListMarker(strings.TrimSpace(line))
		if !ok {
			continue
		}
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
		if len(items) == limit {
			break
		}
	}
	return items
}

// stripListMarker removes a leading "1." or "1)" style marker, accepting up
// to three digits. ok is false when the line has no marker.
func stripListMarker(line string) (string, bool) {
	i := 0
	for i < len(line) && i < 3 && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return "", false
	}
	if line[i] != '.' && line[i] != ')' {
		return "", false
	}
	return line[i+1:], true
}
