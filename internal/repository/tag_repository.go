package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// TagRepository handles the badge-style taxonomy tables
// (topics, pathologies, methods). Tags are deduplicated
// case-insensitively by name within their kind.
type TagRepository interface {
	// GetOrCreate retrieves a tag of the given kind by case-insensitive
	// name match or creates a new one.
	GetOrCreate(ctx context.Context, kind domain.TagKind, name string) (*domain.Tag, bool, error)

	// GetByID retrieves a tag of the given kind by its UUID.
	// Returns domain.ErrNotFound if no matching tag exists.
	GetByID(ctx context.Context, kind domain.TagKind, id uuid.UUID) (*domain.Tag, error)

	// List retrieves all tags of the given kind ordered by name.
	List(ctx context.Context, kind domain.TagKind) ([]*domain.Tag, error)
}
