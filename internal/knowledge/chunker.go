package knowledge

import (
	"fmt"
	"unicode/utf8"
)

// ChunkingConfig sets chunk geometry in tokens. SizeTokens must be at least
// 1; OverlapPercent must be in [0, 100).
type ChunkingConfig struct {
	SizeTokens     int
	OverlapPercent int
}

// Chunker splits document content into position-addressed chunks. Splitting
// is deterministic: the same content and config always produce the same
// chunks.
type Chunker struct {
	chunkChars   int
	overlapChars int
}

// NewChunker validates cfg and returns a ready chunker. Token sizes are
// converted to bytes at four bytes per token.
func NewChunker(cfg ChunkingConfig) (*Chunker, error) {
	if cfg.SizeTokens < 1 {
		return nil, fmt.Errorf("%w: %d tokens", ErrInvalidChunkSize, cfg.SizeTokens)
	}
	if cfg.OverlapPercent < 0 || cfg.OverlapPercent >= 100 {
		return nil, fmt.Errorf("%w: %d%%", ErrInvalidOverlap, cfg.OverlapPercent)
	}
	chunkChars := cfg.SizeTokens * charsPerToken
	return &Chunker{
		chunkChars:   chunkChars,
		overlapChars: chunkChars * cfg.OverlapPercent / 100,
	}, nil
}

// Split cuts content into chunks. Every byte of content lands in at least
// one chunk; consecutive chunks overlap by the configured fraction. Empty
// content yields nil.
func (c *Chunker) Split(content string) []Chunk {
	if content == "" {
		return nil
	}

	var chunks []Chunk
	start := 0
	for start < len(content) {
		end := c.chunkEnd(content, start)
		chunks = append(chunks, Chunk{
			Text:     content[start:end],
			Position: ChunkPosition{Start: start, End: end},
			Ordinal:  len(chunks),
		})
		if end >= len(content) {
			break
		}
		next := end - c.overlapChars
		for next > 0 && !utf8.RuneStart(content[next]) {
			next--
		}
		// Overlap must never stall the cursor.
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// chunkEnd finds where the chunk starting at start should stop. It prefers
// the last sentence boundary inside the window, then the nearest boundary
// within lookahead past it, then a hard cut pulled back to a rune start.
func (c *Chunker) chunkEnd(content string, start int) int {
	rawEnd := start + c.chunkChars
	if rawEnd >= len(content) {
		return len(content)
	}

	for i := rawEnd - 1; i > start; i-- {
		if isBoundary(content[i]) {
			return i + 1
		}
	}

	limit := rawEnd + boundaryLookahead
	if limit > len(content) {
		limit = len(content)
	}
	for i := rawEnd; i < limit; i++ {
		if isBoundary(content[i]) {
			return i + 1
		}
	}

	end := rawEnd
	for end > start+1 && !utf8.RuneStart(content[end]) {
		end--
	}
	return end
}

func isBoundary(b byte) bool {
	switch b {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}
