package metasources

import (
	"context"
	"strings"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// Validator checks an identifier against an authority of record without
// fetching metadata for it.
type Validator interface {
	Validate(ctx context.Context, id string) (bool, error)
}

// validatedSource delegates fetching to the wrapped source but answers
// Validate from a separate authority. The citation-db pipeline validates
// DOIs against Crossref while fetching the baseline record elsewhere.
type validatedSource struct {
	Source
	validator Validator
}

// Validated returns a Source whose identifier validation is answered by v
// instead of the wrapped source.
func Validated(s Source, v Validator) Source {
	return &validatedSource{Source: s, validator: v}
}

func (s *validatedSource) Validate(ctx context.Context, id string) (bool, error) {
	return s.validator.Validate(ctx, id)
}

// prefixedSource rewrites identifiers before delegating. The preprint
// pipeline fetches its baseline record under "arXiv:<id>" while the rest of
// the pipeline sees the bare identifier.
type prefixedSource struct {
	Source
	prefix string
}

// Prefixed returns a Source that prepends prefix to identifiers that do not
// already carry it before delegating to s.
func Prefixed(s Source, prefix string) Source {
	return &prefixedSource{Source: s, prefix: prefix}
}

func (s *prefixedSource) qualify(id string) string {
	if strings.HasPrefix(id, s.prefix) {
		return id
	}
	return s.prefix + id
}

func (s *prefixedSource) Validate(ctx context.Context, id string) (bool, error) {
	return s.Source.Validate(ctx, s.qualify(id))
}

func (s *prefixedSource) Fetch(ctx context.Context, id string) (*domain.PaperRecord, error) {
	return s.Source.Fetch(ctx, s.qualify(id))
}
