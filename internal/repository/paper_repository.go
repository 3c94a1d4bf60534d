package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// PaperRepository handles paper persistence and lookup.
type PaperRepository interface {
	// Upsert inserts a new paper or updates the existing one with the same
	// reference_id. Non-empty incoming fields overwrite; empty incoming text
	// fields never clobber stored values.
	Upsert(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// GetByID retrieves a paper by its UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// GetByReferenceID retrieves a paper by its external reference identifier
	// (DOI, Semantic Scholar ID, arXiv ID, or MANUAL_ENTRY-<n>).
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByReferenceID(ctx context.Context, referenceID string) (*domain.Paper, error)

	// NextManualSequence returns the next free sequence number for
	// MANUAL_ENTRY-<n> reference identifiers, scanning existing manual papers.
	NextManualSequence(ctx context.Context) (int, error)

	// Search performs case-insensitive substring search across paper title,
	// author name, keyword name, and topic name. Results are deduplicated
	// by paper id and ordered newest first.
	Search(ctx context.Context, query string, limit, offset int) ([]*domain.Paper, int64, error)

	// List retrieves papers matching the filter criteria, newest first.
	// Returns the matching papers and total count for pagination.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)

	// LoadAssociations populates Authors (with affiliations) and Keywords
	// on the given paper from the link tables.
	LoadAssociations(ctx context.Context, paper *domain.Paper) error
}

// PaperFilter specifies criteria for listing papers via PaperRepository.List.
type PaperFilter struct {
	// SourceKind filters to papers crawled from a specific source (optional).
	SourceKind *domain.SourceKind

	// KeywordID filters to papers linked to a specific keyword (optional).
	KeywordID *uuid.UUID

	// TopicID filters to papers tagged with a specific topic (optional).
	TopicID *uuid.UUID

	// PathologyID filters to papers tagged with a specific pathology (optional).
	PathologyID *uuid.UUID

	// MethodID filters to papers tagged with a specific method (optional).
	MethodID *uuid.UUID

	// AuthorID filters to papers written by a specific author (optional).
	AuthorID *uuid.UUID

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
