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
var _ TagRepository = (*PgTagRepository)(nil)

// PgTagRepository is a PostgreSQL implementation of TagRepository backed by
// the topics, pathologies, and methods tables.
type PgTagRepository struct {
	db DBTX
}

// NewPgTagRepository creates a new PostgreSQL tag repository.
func NewPgTagRepository(db DBTX) *PgTagRepository {
	return &PgTagRepository{db: db}
}

func tagTable(kind domain.TagKind) (string, error) {
	switch kind {
	case domain.TagKindTopic:
		return "topics", nil
	case domain.TagKindPathology:
		return "pathologies", nil
	case domain.TagKindMethod:
		return "methods", nil
	default:
		return "", domain.NewValidationError("kind", fmt.Sprintf("unknown tag kind %q", kind))
	}
}

// GetOrCreate retrieves a tag by case-insensitive name match or creates one.
func (r *PgTagRepository) GetOrCreate(ctx context.Context, kind domain.TagKind, name string) (*domain.Tag, bool, error) {
	if name == "" {
		return nil, false, domain.NewValidationError("name", "tag name is required")
	}
	table, err := tagTable(kind)
	if err != nil {
		return nil, false, err
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, name, description, badge_class, created_at
		FROM %s
		WHERE LOWER(name) = LOWER($1)`, table)

	tag := &domain.Tag{Kind: kind}
	err = r.db.QueryRow(ctx, selectQuery, name).
		Scan(&tag.ID, &tag.Name, &tag.Description, &tag.BadgeClass, &tag.CreatedAt)
	if err == nil {
		return tag, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up %s tag: %w", kind, err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (LOWER(name)) DO NOTHING
		RETURNING description, badge_class, created_at`, table)

	tag = &domain.Tag{ID: uuid.New(), Kind: kind, Name: name}
	err = r.db.QueryRow(ctx, insertQuery, tag.ID, tag.Name, time.Now().UTC()).
		Scan(&tag.Description, &tag.BadgeClass, &tag.CreatedAt)
	if err == nil {
		return tag, true, nil
	}
	// No row back means a concurrent creator won; re-read the winner.
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create %s tag: %w", kind, err)
	}

	tag = &domain.Tag{Kind: kind}
	err = r.db.QueryRow(ctx, selectQuery, name).
		Scan(&tag.ID, &tag.Name, &tag.Description, &tag.BadgeClass, &tag.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read %s tag after conflict: %w", kind, err)
	}
	return tag, false, nil
}

// GetByID retrieves a tag of the given kind by its UUID.
func (r *PgTagRepository) GetByID(ctx context.Context, kind domain.TagKind, id uuid.UUID) (*domain.Tag, error) {
	table, err := tagTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, description, badge_class, created_at
		FROM %s
		WHERE id = $1`, table)

	tag := &domain.Tag{Kind: kind}
	err = r.db.QueryRow(ctx, query, id).
		Scan(&tag.ID, &tag.Name, &tag.Description, &tag.BadgeClass, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(string(kind), id.String())
		}
		return nil, fmt.Errorf("failed to get %s tag: %w", kind, err)
	}
	return tag, nil
}

// List retrieves all tags of the given kind ordered by name.
func (r *PgTagRepository) List(ctx context.Context, kind domain.TagKind) ([]*domain.Tag, error) {
	table, err := tagTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, name, description, badge_class, created_at
		FROM %s
		ORDER BY name`, table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s tags: %w", kind, err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag := &domain.Tag{Kind: kind}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Description, &tag.BadgeClass, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s tag: %w", kind, err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s tags: %w", kind, err)
	}
	return tags, nil
}
