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
var _ AuthorRepository = (*PgAuthorRepository)(nil)

// PgAuthorRepository is a PostgreSQL implementation of AuthorRepository.
type PgAuthorRepository struct {
	db DBTX
}

// NewPgAuthorRepository creates a new PostgreSQL author repository.
func NewPgAuthorRepository(db DBTX) *PgAuthorRepository {
	return &PgAuthorRepository{db: db}
}

// GetOrCreate retrieves an author by case-insensitive name match or creates one.
// The insert carries ON CONFLICT DO NOTHING against the unique LOWER(name)
// index: a lost race returns no row instead of raising a unique violation,
// which would abort the enclosing crawl transaction. The read is then retried
// once so both crawls converge on the same row.
func (r *PgAuthorRepository) GetOrCreate(ctx context.Context, name, indexedName string) (*domain.Author, bool, error) {
	if name == "" {
		return nil, false, domain.NewValidationError("name", "author name is required")
	}

	author, err := r.getByName(ctx, name)
	if err == nil {
		if indexedName != "" && author.IndexedName == "" {
			if err := r.setIndexedName(ctx, author.ID, indexedName); err != nil {
				return nil, false, err
			}
			author.IndexedName = indexedName
		}
		return author, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up author: %w", err)
	}

	insert := `
		INSERT INTO authors (id, name, indexed_name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (LOWER(name)) DO NOTHING
		RETURNING created_at`

	author = &domain.Author{
		ID:          uuid.New(),
		Name:        name,
		IndexedName: indexedName,
	}
	err = r.db.QueryRow(ctx, insert, author.ID, author.Name, author.IndexedName, time.Now().UTC()).
		Scan(&author.CreatedAt)
	if err == nil {
		return author, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create author: %w", err)
	}

	// No row back means the conflict target fired; the winner's row
	// satisfies the lookup now and the transaction stays usable.
	author, err = r.getByName(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read author after conflict: %w", err)
	}
	return author, false, nil
}

func (r *PgAuthorRepository) getByName(ctx context.Context, name string) (*domain.Author, error) {
	query := `
		SELECT id, name, indexed_name, created_at
		FROM authors
		WHERE LOWER(name) = LOWER($1)`

	author := &domain.Author{}
	err := r.db.QueryRow(ctx, query, name).
		Scan(&author.ID, &author.Name, &author.IndexedName, &author.CreatedAt)
	if err != nil {
		return nil, err
	}
	return author, nil
}

func (r *PgAuthorRepository) setIndexedName(ctx context.Context, id uuid.UUID, indexedName string) error {
	query := `UPDATE authors SET indexed_name = $1 WHERE id = $2 AND indexed_name = ''`
	if _, err := r.db.Exec(ctx, query, indexedName, id); err != nil {
		return fmt.Errorf("failed to set indexed name: %w", err)
	}
	return nil
}

// GetByID retrieves an author by its UUID.
func (r *PgAuthorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Author, error) {
	query := `SELECT id, name, indexed_name, created_at FROM authors WHERE id = $1`

	author := &domain.Author{}
	err := r.db.QueryRow(ctx, query, id).
		Scan(&author.ID, &author.Name, &author.IndexedName, &author.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author", id.String())
		}
		return nil, fmt.Errorf("failed to get author by ID: %w", err)
	}
	return author, nil
}

// LinkToPaper records the author at the given 1-based position in the paper's
// author list.
func (r *PgAuthorRepository) LinkToPaper(ctx context.Context, authorID, paperID uuid.UUID, order int) (*domain.AuthorPaper, error) {
	if order < 1 {
		return nil, domain.NewValidationError("author_order", "author order must be >= 1")
	}

	query := `
		INSERT INTO author_papers (id, author_id, paper_id, author_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (paper_id, author_id) DO UPDATE SET
			author_order = EXCLUDED.author_order
		RETURNING id`

	link := &domain.AuthorPaper{
		AuthorID:    authorID,
		PaperID:     paperID,
		AuthorOrder: order,
	}
	err := r.db.QueryRow(ctx, query, uuid.New(), authorID, paperID, order).Scan(&link.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.NewNotFoundError("paper or author", paperID.String())
		}
		return nil, fmt.Errorf("failed to link author to paper: %w", err)
	}
	return link, nil
}

// ClearPaperLinks removes all author links for a paper.
func (r *PgAuthorRepository) ClearPaperLinks(ctx context.Context, paperID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM author_papers WHERE paper_id = $1`, paperID); err != nil {
		return fmt.Errorf("failed to clear author links: %w", err)
	}
	return nil
}

// ListByPaper retrieves the paper's author links in author order.
func (r *PgAuthorRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.AuthorPaper, error) {
	query := `
		SELECT ap.id, ap.author_id, ap.paper_id, ap.author_order,
			a.name, a.indexed_name, a.created_at
		FROM author_papers ap
		INNER JOIN authors a ON a.id = ap.author_id
		WHERE ap.paper_id = $1
		ORDER BY ap.author_order`

	rows, err := r.db.Query(ctx, query, paperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list paper authors: %w", err)
	}
	defer rows.Close()

	var links []*domain.AuthorPaper
	for rows.Next() {
		link := &domain.AuthorPaper{Author: &domain.Author{}}
		if err := rows.Scan(
			&link.ID, &link.AuthorID, &link.PaperID, &link.AuthorOrder,
			&link.Author.Name, &link.Author.IndexedName, &link.Author.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan paper author: %w", err)
		}
		link.Author.ID = link.AuthorID
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating paper authors: %w", err)
	}
	return links, nil
}
