package knowledge

// searchConfig is the resolved per-call search configuration. The engine
// seeds it from its own defaults before applying options, so options only
// ever override.
type searchConfig struct {
	scope       []string
	kinds       []Kind
	maxResults  int
	tokenBudget int
	threshold   float64
	expansion   bool
	gapFill     bool
}

// SearchOption customizes a single Search call.
type SearchOption func(*searchConfig)

// buildSearchConfig applies opts over the seeded defaults.
func buildSearchConfig(seed searchConfig, opts []SearchOption) searchConfig {
	for _, opt := range opts {
		opt(&seed)
	}
	return seed
}

// WithDocuments restricts the search to the given document IDs. Calling it
// with no IDs leaves the scope unrestricted.
func WithDocuments(ids ...string) SearchOption {
	return func(c *searchConfig) {
		if len(ids) == 0 {
			c.scope = nil
			return
		}
		c.scope = ids
	}
}

// WithKinds restricts the search to documents of the given kinds.
func WithKinds(kinds ...Kind) SearchOption {
	return func(c *searchConfig) {
		c.kinds = kinds
	}
}

// WithMaxResults overrides how many true matches the search may return.
// Gap fillers come on top and are not counted.
func WithMaxResults(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithTokenBudget overrides the token budget for assembled results. Zero or
// negative means unlimited.
func WithTokenBudget(n int) SearchOption {
	return func(c *searchConfig) {
		c.tokenBudget = n
	}
}

// WithThreshold overrides the minimum similarity a chunk must reach.
func WithThreshold(t float64) SearchOption {
	return func(c *searchConfig) {
		c.threshold = t
	}
}

// WithExpansion toggles multi-query expansion for this search. Enabling it
// has no effect on an engine built without an expander.
func WithExpansion(enabled bool) SearchOption {
	return func(c *searchConfig) {
		c.expansion = enabled
	}
}

// WithGapFill toggles neighbor chunk filling for this search.
func WithGapFill(enabled bool) SearchOption {
	return func(c *searchConfig) {
		c.gapFill = enabled
	}
}

// indexConfig is the resolved per-call indexing configuration.
type indexConfig struct {
	progress func(pct int, msg string)
}

// report invokes the progress callback when one is set. Callbacks run on
// the indexing goroutine and must return quickly.
func (c indexConfig) report(pct int, msg string) {
	if c.progress != nil {
		c.progress(pct, msg)
	}
}

// IndexOption customizes a single Index call.
type IndexOption func(*indexConfig)

func buildIndexConfig(opts []IndexOption) indexConfig {
	var cfg indexConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithProgress registers a callback that receives coarse progress updates
// while the document is being indexed.
func WithProgress(fn func(pct int, msg string)) IndexOption {
	return func(c *indexConfig) {
		c.progress = fn
	}
}
