package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// Compile-time interface verification.
var _ KeywordRepository = (*PgKeywordRepository)(nil)

// PgKeywordRepository is a PostgreSQL implementation of KeywordRepository.
type PgKeywordRepository struct {
	db DBTX
}

// NewPgKeywordRepository creates a new PostgreSQL keyword repository.
func NewPgKeywordRepository(db DBTX) *PgKeywordRepository {
	return &PgKeywordRepository{db: db}
}

// GetOrCreate retrieves a keyword by its normalized form or creates one.
func (r *PgKeywordRepository) GetOrCreate(ctx context.Context, keyword string) (*domain.Keyword, bool, error) {
	normalized := domain.NormalizeKeyword(keyword)
	if normalized == "" {
		return nil, false, domain.NewValidationError("keyword", "keyword cannot be empty")
	}

	kw := &domain.Keyword{}
	id, createdAt, created, err := r.getOrCreateNamed(ctx, "keywords", normalized)
	if err != nil {
		return nil, false, err
	}
	kw.ID, kw.Name, kw.CreatedAt = id, normalized, createdAt
	return kw, created, nil
}

// LinkToPaper associates a keyword with a paper.
func (r *PgKeywordRepository) LinkToPaper(ctx context.Context, keywordID, paperID uuid.UUID) error {
	query := `
		INSERT INTO paper_keywords (paper_id, keyword_id)
		VALUES ($1, $2)
		ON CONFLICT (paper_id, keyword_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, paperID, keywordID); err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewNotFoundError("paper or keyword", paperID.String())
		}
		return fmt.Errorf("failed to link keyword: %w", err)
	}
	return nil
}

// ClearPaperLinks removes all keyword links for a paper.
func (r *PgKeywordRepository) ClearPaperLinks(ctx context.Context, paperID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM paper_keywords WHERE paper_id = $1`, paperID); err != nil {
		return fmt.Errorf("failed to clear keyword links: %w", err)
	}
	return nil
}

// ListByPaper retrieves the keywords linked to a paper, ordered by name.
func (r *PgKeywordRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Keyword, error) {
	query := `
		SELECT k.id, k.name, k.created_at
		FROM paper_keywords pk
		INNER JOIN keywords k ON k.id = pk.keyword_id
		WHERE pk.paper_id = $1
		ORDER BY k.name`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	defer rows.Close()

	var keywords []*domain.Keyword
	for rows.Next() {
		kw := &domain.Keyword{}
		if err := rows.Scan(&kw.ID, &kw.Name, &kw.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keywords: %w", err)
	}
	return keywords, nil
}

// GetOrCreateKeyPhrase retrieves a suggested key phrase or creates one.
func (r *PgKeywordRepository) GetOrCreateKeyPhrase(ctx context.Context, phrase string) (*domain.KeyPhrase, bool, error) {
	normalized := domain.NormalizeKeyword(phrase)
	if normalized == "" {
		return nil, false, domain.NewValidationError("key_phrase", "key phrase cannot be empty")
	}

	kp := &domain.KeyPhrase{}
	id, createdAt, created, err := r.getOrCreateNamed(ctx, "key_phrases", normalized)
	if err != nil {
		return nil, false, err
	}
	kp.ID, kp.Name, kp.CreatedAt = id, normalized, createdAt
	return kp, created, nil
}

// LinkKeyPhraseToPaper associates a suggested key phrase with a paper.
func (r *PgKeywordRepository) LinkKeyPhraseToPaper(ctx context.Context, keyPhraseID, paperID uuid.UUID) error {
	query := `
		INSERT INTO paper_key_phrases (paper_id, key_phrase_id)
		VALUES ($1, $2)
		ON CONFLICT (paper_id, key_phrase_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, paperID, keyPhraseID); err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewNotFoundError("paper or key phrase", paperID.String())
		}
		return fmt.Errorf("failed to link key phrase: %w", err)
	}
	return nil
}

// ListKeyPhrasesByPaper retrieves the suggested key phrases linked to a paper.
func (r *PgKeywordRepository) ListKeyPhrasesByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.KeyPhrase, error) {
	query := `
		SELECT kp.id, kp.name, kp.created_at
		FROM paper_key_phrases pkp
		INNER JOIN key_phrases kp ON kp.id = pkp.key_phrase_id
		WHERE pkp.paper_id = $1
		ORDER BY kp.name`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list key phrases: %w", err)
	}
	defer rows.Close()

	var phrases []*domain.KeyPhrase
	for rows.Next() {
		kp := &domain.KeyPhrase{}
		if err := rows.Scan(&kp.ID, &kp.Name, &kp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan key phrase: %w", err)
		}
		phrases = append(phrases, kp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating key phrases: %w", err)
	}
	return phrases, nil
}

// getOrCreateNamed runs the shared get-or-create sequence for the simple
// (id, name, created_at) tables with a unique name. The insert carries
// ON CONFLICT DO NOTHING so a lost race comes back as no row instead of a
// unique violation that would abort the enclosing transaction; the read is
// then retried once so concurrent creators converge.
func (r *PgKeywordRepository) getOrCreateNamed(ctx context.Context, table, name string) (uuid.UUID, time.Time, bool, error) {
	selectQuery := fmt.Sprintf(`SELECT id, created_at FROM %s WHERE name = $1`, table)

	var id uuid.UUID
	var createdAt time.Time
	err := r.db.QueryRow(ctx, selectQuery, name).Scan(&id, &createdAt)
	if err == nil {
		return id, createdAt, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, false, fmt.Errorf("failed to look up %s: %w", table, err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
		RETURNING created_at`, table)

	id = uuid.New()
	err = r.db.QueryRow(ctx, insertQuery, id, name, time.Now().UTC()).Scan(&createdAt)
	if err == nil {
		return id, createdAt, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, false, fmt.Errorf("failed to create %s entry: %w", table, err)
	}

	err = r.db.QueryRow(ctx, selectQuery, name).Scan(&id, &createdAt)
	if err != nil {
		return uuid.Nil, time.Time{}, false, fmt.Errorf("failed to re-read %s entry after conflict: %w", table, err)
	}
	return id, createdAt, false, nil
}
