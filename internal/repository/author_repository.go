package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// AuthorRepository handles author persistence and paper linking.
// Authors are deduplicated case-insensitively by sanitized name.
type AuthorRepository interface {
	// GetOrCreate retrieves an author by case-insensitive name match or
	// creates a new one. The name must already be sanitized with
	// domain.SanitizeAuthorName. When indexedName is non-empty and the
	// stored author has none, the stored indexed name is filled in.
	// The returned bool reports whether a new author row was created.
	GetOrCreate(ctx context.Context, name, indexedName string) (*domain.Author, bool, error)

	// GetByID retrieves an author by its UUID.
	// Returns domain.ErrNotFound if no matching author exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Author, error)

	// LinkToPaper records the author at the given 1-based position in the
	// paper's author list. Re-linking the same author to the same paper is
	// idempotent; the stored order is updated to the incoming one.
	LinkToPaper(ctx context.Context, authorID, paperID uuid.UUID, order int) (*domain.AuthorPaper, error)

	// ClearPaperLinks removes all author links for a paper. Called before
	// re-linking on a refresh crawl so stale authors and orders drop out.
	ClearPaperLinks(ctx context.Context, paperID uuid.UUID) error

	// ListByPaper retrieves the paper's author links in author order, with
	// the author entity and affiliations populated.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.AuthorPaper, error)
}

// AffiliationRepository handles affiliation persistence and linking.
// Affiliations are deduplicated by exact name; city and country are
// first-seen and never overwritten by later crawls.
type AffiliationRepository interface {
	// GetOrCreate retrieves an affiliation by exact name or creates a new
	// one with the given city and country. If the affiliation already
	// exists its stored city and country win over the incoming values.
	// The returned bool reports whether a new affiliation row was created.
	GetOrCreate(ctx context.Context, name, city, country string) (*domain.Affiliation, bool, error)

	// LinkToAuthorPaper associates an affiliation with an author's
	// appearance on a paper. Idempotent.
	LinkToAuthorPaper(ctx context.Context, authorPaperID, affiliationID uuid.UUID) error

	// ListByAuthorPaper retrieves the affiliations linked to an author's
	// appearance on a paper, ordered by name.
	ListByAuthorPaper(ctx context.Context, authorPaperID uuid.UUID) ([]*domain.Affiliation, error)
}
