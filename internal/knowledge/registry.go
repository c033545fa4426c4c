package knowledge

import (
	"maps"
	"sort"
	"sync"
)

// Registry holds the documents the engine knows about. It is plain storage:
// validation happens in the engine before a document gets here. Content is
// kept so result text can be resolved from positions at query time.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[string]Document)}
}

// Register stores doc under its ID, replacing any previous version. It
// reports whether a document with that ID already existed. Metadata is
// cloned so later caller mutations do not leak in.
func (r *Registry) Register(doc Document) bool {
	doc.Metadata = maps.Clone(doc.Metadata)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced := r.docs[doc.ID]
	r.docs[doc.ID] = doc
	return replaced
}

// Get returns the document with the given ID.
func (r *Registry) Get(id string) (Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}

// Remove deletes the document and reports whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[id]
	delete(r.docs, id)
	return ok
}

// List returns all documents, newest first, ties broken by ID for a stable
// order.
func (r *Registry) List() []Document {
	r.mu.RLock()
	out := make([]Document, 0, len(r.docs))
	for _, doc := range r.docs {
		out = append(out, doc)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of registered documents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
