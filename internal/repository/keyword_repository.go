package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// KeywordRepository handles keyword and key-phrase persistence.
// Both are stored lowercase and deduplicated case-insensitively.
type KeywordRepository interface {
	// GetOrCreate retrieves a keyword by its normalized form or creates a
	// new one. The input is normalized with domain.NormalizeKeyword before
	// storage. The returned bool reports whether a new row was created.
	GetOrCreate(ctx context.Context, keyword string) (*domain.Keyword, bool, error)

	// LinkToPaper associates a keyword with a paper. Idempotent.
	LinkToPaper(ctx context.Context, keywordID, paperID uuid.UUID) error

	// ClearPaperLinks removes all keyword links for a paper. Called before
	// re-linking on a refresh crawl.
	ClearPaperLinks(ctx context.Context, paperID uuid.UUID) error

	// ListByPaper retrieves the keywords linked to a paper, ordered by name.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Keyword, error)

	// GetOrCreateKeyPhrase retrieves a suggested key phrase by its
	// normalized form or creates a new one.
	GetOrCreateKeyPhrase(ctx context.Context, phrase string) (*domain.KeyPhrase, bool, error)

	// LinkKeyPhraseToPaper associates a suggested key phrase with a paper.
	// Idempotent.
	LinkKeyPhraseToPaper(ctx context.Context, keyPhraseID, paperID uuid.UUID) error

	// ListKeyPhrasesByPaper retrieves the suggested key phrases linked to a
	// paper, ordered by name.
	ListKeyPhrasesByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.KeyPhrase, error)
}
