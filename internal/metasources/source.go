// Package metasources provides clients for fetching paper metadata from
// external bibliographic systems.
//
// Each source kind is served by a Pipeline: a baseline Source that validates
// an identifier and fetches a normalized record, followed by zero or more
// Enricher passes that layer additional metadata onto the same record.
//
// Example usage:
//
//	pipeline, _ := registry.Pipeline(domain.SourceKindScopus)
//	ok, err := pipeline.Validate(ctx, "10.1000/xyz123")
//	rec, err := pipeline.Fetch(ctx, "10.1000/xyz123")
package metasources

import (
	"context"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// Source is the baseline metadata provider for an identifier.
type Source interface {
	// Validate reports whether the identifier exists in the source's
	// authority of record. A false return with nil error means the
	// identifier was definitively not found; an error means the check
	// itself could not be completed.
	Validate(ctx context.Context, id string) (bool, error)

	// Fetch retrieves the baseline normalized record for the identifier.
	// Returns domain.ErrIdentifierNotFound when the source has no paper
	// for the identifier, and domain.ErrMetadataUnavailable when a paper
	// exists but its metadata document cannot be decoded.
	Fetch(ctx context.Context, id string) (*domain.PaperRecord, error)

	// Name returns a human-readable name for logging and metrics.
	Name() string
}

// Enricher layers additional metadata from a secondary document onto an
// already fetched record.
//
// Absence of the enricher's own document is not an error; the baseline
// record stands. A present but malformed document is
// domain.ErrMetadataUnavailable, and a dangling affiliation reference is
// a domain.AffiliationReferenceError.
type Enricher interface {
	// Enrich fetches the enricher's document for the identifier and
	// merges it into rec.
	Enrich(ctx context.Context, id string, rec *domain.PaperRecord) error

	// Name returns a human-readable name for logging and metrics.
	Name() string
}

// Pipeline is the full crawl plan for one source kind: a baseline source
// plus ordered enrichment passes.
type Pipeline struct {
	Source    Source
	Enrichers []Enricher
}

// Validate delegates identifier validation to the baseline source.
func (p *Pipeline) Validate(ctx context.Context, id string) (bool, error) {
	return p.Source.Validate(ctx, id)
}

// Fetch runs the baseline fetch and every enrichment pass in order,
// returning the layered record.
func (p *Pipeline) Fetch(ctx context.Context, id string) (*domain.PaperRecord, error) {
	rec, err := p.Source.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range p.Enrichers {
		if err := e.Enrich(ctx, id, rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
