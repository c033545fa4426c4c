package knowledge

import "time"

// charsPerToken is the approximation used everywhere a token count is
// estimated from text: one token per four bytes of UTF-8.
const charsPerToken = 4

// boundaryLookahead is how far past the nominal chunk end the chunker scans
// for a sentence boundary before giving up and cutting hard.
const boundaryLookahead = 100

// Engine defaults. Each applies when the corresponding config field is zero.
const (
	DefaultChunkSizeTokens     = 256
	DefaultOverlapPercent      = 15
	DefaultBatchSize           = 20
	DefaultSimilarityThreshold = 0.3
	DefaultMaxResults          = 8
	DefaultTokenBudget         = 2048
	DefaultExpansionCount      = 3
	DefaultIndexConcurrency    = 1
)

// MaxBatchSize is the hard ceiling on texts per embedding request, matching
// the smallest batch limit among supported providers.
const MaxBatchSize = 20

// MaxExpansionCount caps alternate phrasings per search; more phrasings past
// this point add latency without adding recall.
const MaxExpansionCount = 8

// Network call defaults for the embedding and expansion endpoints.
const (
	DefaultEmbedTimeout     = 30 * time.Second
	DefaultExpansionTimeout = 20 * time.Second

	DefaultEmbedRequestsPerSecond = 5
	DefaultEmbedBurst             = 10
)

// EstimateTokens approximates the token cost of text as one token per four
// bytes, rounding up. Chunk sizing and result budgeting use the same
// estimate so the two stay comparable.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}
