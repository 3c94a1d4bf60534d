package metasources

import (
	"sync"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// Registry maps source kinds to their crawl pipelines.
// It is thread-safe; pipelines are usually registered once at startup.
type Registry struct {
	mu        sync.RWMutex
	pipelines map[domain.SourceKind]*Pipeline
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pipelines: make(map[domain.SourceKind]*Pipeline),
	}
}

// Register installs the pipeline for a source kind.
// An existing pipeline for the same kind is replaced.
func (r *Registry) Register(kind domain.SourceKind, p *Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelines[kind] = p
}

// Pipeline returns the pipeline for a source kind. The manual kind has no
// pipeline; for it, and for unregistered kinds, the second return is false.
func (r *Registry) Pipeline(kind domain.SourceKind) (*Pipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pipelines[kind]
	return p, ok
}

// Kinds returns the source kinds with a registered pipeline.
func (r *Registry) Kinds() []domain.SourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.SourceKind, 0, len(r.pipelines))
	for k := range r.pipelines {
		kinds = append(kinds, k)
	}
	return kinds
}
