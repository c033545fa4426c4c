package knowledge

import "sync"

// VectorStore holds document indexes in memory. All contents are volatile:
// a restart loses every index, and documents report not-indexed until
// re-indexed.
//
// Concurrent writers for the same document are resolved by generation
// number: a Put or Remove only takes effect if its generation is newer than
// anything already recorded for that document. Removals leave a tombstone so
// a slow indexing job from before the removal cannot resurrect the index.
type VectorStore struct {
	mu      sync.RWMutex
	indexes map[string]DocumentIndex
	removed map[string]uint64
}

// NewVectorStore returns an empty store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		indexes: make(map[string]DocumentIndex),
		removed: make(map[string]uint64),
	}
}

// Put installs idx as the document's current index, replacing any previous
// one wholesale. It reports false and discards idx when a same-or-newer
// generation already won, either as a live index or a tombstone.
func (s *VectorStore) Put(idx DocumentIndex) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.indexes[idx.DocumentID]; ok && existing.Generation >= idx.Generation {
		return false
	}
	if gen, ok := s.removed[idx.DocumentID]; ok && gen >= idx.Generation {
		return false
	}
	delete(s.removed, idx.DocumentID)
	s.indexes[idx.DocumentID] = idx
	return true
}

// Get returns the current index for a document.
func (s *VectorStore) Get(docID string) (DocumentIndex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[docID]
	return idx, ok
}

// Has reports whether the document has a current index.
func (s *VectorStore) Has(docID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[docID]
	return ok
}

// Remove drops the document's index and records generation as a tombstone,
// blocking installs from jobs that started before the removal. It reports
// whether an index was present.
func (s *VectorStore) Remove(docID string, generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen, ok := s.removed[docID]; !ok || generation > gen {
		s.removed[docID] = generation
	}
	_, ok := s.indexes[docID]
	delete(s.indexes, docID)
	return ok
}

// IDs returns the IDs of all indexed documents in unspecified order.
func (s *VectorStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.indexes))
	for id := range s.indexes {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of indexed documents.
func (s *VectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexes)
}

// VectorCount returns the total number of vectors across all indexes.
func (s *VectorStore) VectorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, idx := range s.indexes {
		total += len(idx.Vectors)
	}
	return total
}

// Snapshot returns the indexes for the given document IDs, or every index
// when ids is nil. Unknown IDs are skipped. The returned slice headers are
// copies but the vectors are shared; callers must treat them as read-only.
func (s *VectorStore) Snapshot(ids []string) []DocumentIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ids == nil {
		out := make([]DocumentIndex, 0, len(s.indexes))
		for _, idx := range s.indexes {
			out = append(out, idx)
		}
		return out
	}

	out := make([]DocumentIndex, 0, len(ids))
	for _, id := range ids {
		if idx, ok := s.indexes[id]; ok {
			out = append(out, idx)
		}
	}
	return out
}
