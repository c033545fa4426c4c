package knowledge

import (
	"log/slog"
	"math"
	"sort"
)

// RetrievalConfig sets search-time defaults. In a non-zero struct the
// threshold is taken literally, so an explicit zero threshold survives;
// MaxResults and TokenBudget fall back individually when zero. DisableGapFill
// is inverted so the zero value keeps neighbor filling on.
type RetrievalConfig struct {
	SimilarityThreshold float64
	MaxResults          int
	TokenBudget         int
	DisableGapFill      bool
}

// RetrieveParams is one fully resolved retrieval request. Every field is
// authoritative: defaulting happens in the engine before the call. Queries
// holds the embedded variants, original first; nil entries are tolerated and
// ignored when scoring.
type RetrieveParams struct {
	Queries     [][]float32
	Model       string
	Scope       []string
	Kinds       []Kind
	MaxResults  int
	TokenBudget int
	Threshold   float64
	GapFill     bool
}

// Retriever scores stored vectors against query embeddings and assembles
// results. It is pure in-memory computation; nothing here blocks on I/O.
type Retriever struct {
	store    *VectorStore
	registry *Registry
	logger   *slog.Logger
}

// NewRetriever creates a retriever over the given store and registry.
func NewRetriever(store *VectorStore, registry *Registry, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, registry: registry, logger: logger}
}

// candidate is one chunk that cleared the similarity threshold.
type candidate struct {
	doc Document
	vec *Vector
	sim float64
}

// resultKey identifies a chunk within the result set.
type resultKey struct {
	docID   string
	ordinal int
}

// Retrieve runs one search over the indexed documents in scope. It returns
// the assembled results and the number of candidates that cleared the
// threshold before the result cap and token budget applied.
//
// Ranking is similarity descending, then ordinal ascending, then document ID
// ascending. Assembly walks that order and stops at the first result that
// would overflow the token budget, except that the top result is always
// included. Gap fillers are appended after the true matches and never count
// against MaxResults.
func (r *Retriever) Retrieve(p RetrieveParams) ([]SearchResult, int) {
	indexes := r.store.Snapshot(p.Scope)

	var cands []candidate
	byOrdinal := make(map[string]map[int]*Vector)

	for i := range indexes {
		idx := &indexes[i]

		// Vectors from a different model are not comparable to the
		// query embedding.
		if p.Model != "" && idx.Meta.Model != "" && idx.Meta.Model != p.Model {
			r.logger.Debug("skipping index from different embedding model",
				"document_id", idx.DocumentID,
				"index_model", idx.Meta.Model,
				"query_model", p.Model,
			)
			continue
		}

		doc, ok := r.registry.Get(idx.DocumentID)
		if !ok {
			continue
		}
		if !kindMatches(doc.Kind, p.Kinds) {
			continue
		}

		ordinals := make(map[int]*Vector, len(idx.Vectors))
		for j := range idx.Vectors {
			vec := &idx.Vectors[j]
			ordinals[vec.Ordinal] = vec

			sim := maxSimilarity(p.Queries, vec.Embedding)
			if sim >= p.Threshold {
				cands = append(cands, candidate{doc: doc, vec: vec, sim: sim})
			}
		}
		byOrdinal[idx.DocumentID] = ordinals
	}

	candidates := len(cands)

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].sim != cands[j].sim {
			return cands[i].sim > cands[j].sim
		}
		if cands[i].vec.Ordinal != cands[j].vec.Ordinal {
			return cands[i].vec.Ordinal < cands[j].vec.Ordinal
		}
		return cands[i].doc.ID < cands[j].doc.ID
	})

	if p.MaxResults > 0 && len(cands) > p.MaxResults {
		cands = cands[:p.MaxResults]
	}

	budgeted := p.TokenBudget > 0
	used := 0
	included := make(map[resultKey]bool)
	var results []SearchResult

	for _, c := range cands {
		res, ok := r.resolve(c.doc.ID, c.vec, c.sim, false)
		if !ok {
			continue
		}
		// The top result always ships, even over budget; an empty
		// answer helps nobody.
		if budgeted && len(results) > 0 && used+res.Tokens > p.TokenBudget {
			break
		}
		used += res.Tokens
		included[resultKey{res.DocumentID, res.Ordinal}] = true
		results = append(results, res)
	}

	if p.GapFill {
		results = r.fillGaps(p, results, included, byOrdinal, used, budgeted)
	}

	return results, candidates
}

// fillGaps appends the immediate ordinal neighbors of each included result,
// walking anchors in rank order and trying the previous chunk before the
// next. Filling stops at the first neighbor that would overflow the budget.
func (r *Retriever) fillGaps(
	p RetrieveParams,
	results []SearchResult,
	included map[resultKey]bool,
	byOrdinal map[string]map[int]*Vector,
	used int,
	budgeted bool,
) []SearchResult {
	anchors := len(results)
	for i := 0; i < anchors; i++ {
		anchor := results[i]
		ordinals := byOrdinal[anchor.DocumentID]
		if ordinals == nil {
			continue
		}

		for _, ord := range []int{anchor.Ordinal - 1, anchor.Ordinal + 1} {
			vec, ok := ordinals[ord]
			if !ok {
				continue
			}
			key := resultKey{anchor.DocumentID, ord}
			if included[key] {
				continue
			}

			sim := maxSimilarity(p.Queries, vec.Embedding)
			res, ok := r.resolve(anchor.DocumentID, vec, sim, true)
			if !ok {
				continue
			}
			if budgeted && used+res.Tokens > p.TokenBudget {
				return results
			}
			used += res.Tokens
			included[key] = true
			results = append(results, res)
		}
	}
	return results
}

// resolve turns a stored vector into a SearchResult, reading the chunk text
// from the document's current content. It fails when the document is gone or
// its content no longer covers the stored position.
func (r *Retriever) resolve(docID string, vec *Vector, sim float64, gapFiller bool) (SearchResult, bool) {
	doc, ok := r.registry.Get(docID)
	if !ok {
		return SearchResult{}, false
	}
	text, ok := vec.Position.Slice(doc.Content)
	if !ok {
		r.logger.Warn("dropping result with stale position",
			"document_id", docID,
			"ordinal", vec.Ordinal,
			"start", vec.Position.Start,
			"end", vec.Position.End,
			"content_len", len(doc.Content),
		)
		return SearchResult{}, false
	}

	return SearchResult{
		DocumentID:   docID,
		DocumentName: doc.Name,
		Kind:         doc.Kind,
		Ordinal:      vec.Ordinal,
		Position:     vec.Position,
		Content:      text,
		Similarity:   sim,
		IsGapFiller:  gapFiller,
		Tokens:       EstimateTokens(text),
	}, true
}

// kindMatches reports whether kind passes the filter; an empty filter passes
// everything.
func kindMatches(kind Kind, filter []Kind) bool {
	if len(filter) == 0 {
		return true
	}
	for _, k := range filter {
		if k == kind {
			return true
		}
	}
	return false
}

// maxSimilarity returns the best cosine similarity between any query variant
// and v. Nil variants are skipped; with no usable variant the result is -1,
// below any threshold.
func maxSimilarity(queries [][]float32, v []float32) float64 {
	best := -1.0
	for _, q := range queries {
		if q == nil {
			continue
		}
		if sim := cosineSimilarity(q, v); sim > best {
			best = sim
		}
	}
	return best
}

// cosineSimilarity computes the cosine of the angle between a and b,
// accumulating in float64 to keep long-vector sums stable. Mismatched
// lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
