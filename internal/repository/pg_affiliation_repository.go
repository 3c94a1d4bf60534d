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
var _ AffiliationRepository = (*PgAffiliationRepository)(nil)

// PgAffiliationRepository is a PostgreSQL implementation of AffiliationRepository.
type PgAffiliationRepository struct {
	db DBTX
}

// NewPgAffiliationRepository creates a new PostgreSQL affiliation repository.
func NewPgAffiliationRepository(db DBTX) *PgAffiliationRepository {
	return &PgAffiliationRepository{db: db}
}

// GetOrCreate retrieves an affiliation by exact name or creates one.
// If the affiliation already exists its stored city and country win over
// the incoming values; first-seen details stick.
func (r *PgAffiliationRepository) GetOrCreate(ctx context.Context, name, city, country string) (*domain.Affiliation, bool, error) {
	if name == "" {
		return nil, false, domain.NewValidationError("name", "affiliation name is required")
	}

	aff, err := r.getByName(ctx, name)
	if err == nil {
		return aff, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up affiliation: %w", err)
	}

	insert := `
		INSERT INTO affiliations (id, name, city, country, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING
		RETURNING created_at`

	aff = &domain.Affiliation{
		ID:      uuid.New(),
		Name:    name,
		City:    city,
		Country: country,
	}
	err = r.db.QueryRow(ctx, insert, aff.ID, aff.Name, aff.City, aff.Country, time.Now().UTC()).
		Scan(&aff.CreatedAt)
	if err == nil {
		return aff, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create affiliation: %w", err)
	}

	// Lost race; DO NOTHING left the transaction usable for the re-read.
	aff, err = r.getByName(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to re-read affiliation after conflict: %w", err)
	}
	return aff, false, nil
}

func (r *PgAffiliationRepository) getByName(ctx context.Context, name string) (*domain.Affiliation, error) {
	query := `SELECT id, name, city, country, created_at FROM affiliations WHERE name = $1`

	aff := &domain.Affiliation{}
	err := r.db.QueryRow(ctx, query, name).
		Scan(&aff.ID, &aff.Name, &aff.City, &aff.Country, &aff.CreatedAt)
	if err != nil {
		return nil, err
	}
	return aff, nil
}

// LinkToAuthorPaper associates an affiliation with an author's appearance on a paper.
func (r *PgAffiliationRepository) LinkToAuthorPaper(ctx context.Context, authorPaperID, affiliationID uuid.UUID) error {
	query := `
		INSERT INTO author_paper_affiliations (author_paper_id, affiliation_id)
		VALUES ($1, $2)
		ON CONFLICT (author_paper_id, affiliation_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, authorPaperID, affiliationID); err != nil {
		if isForeignKeyViolation(err) {
			return domain.NewNotFoundError("author_paper or affiliation", authorPaperID.String())
		}
		return fmt.Errorf("failed to link affiliation: %w", err)
	}
	return nil
}

// ListByAuthorPaper retrieves the affiliations linked to an author's appearance
// on a paper, ordered by name.
func (r *PgAffiliationRepository) ListByAuthorPaper(ctx context.Context, authorPaperID uuid.UUID) ([]*domain.Affiliation, error) {
	query := `
		SELECT af.id, af.name, af.city, af.country, af.created_at
		FROM author_paper_affiliations apa
		INNER JOIN affiliations af ON af.id = apa.affiliation_id
		WHERE apa.author_paper_id = $1
		ORDER BY af.name`

	rows, err := r.db.Query(ctx, query, authorPaperID)
	if err != nil {
		return nil, fmt.Errorf("failed to list affiliations: %w", err)
	}
	defer rows.Close()

	var affs []*domain.Affiliation
	for rows.Next() {
		aff := &domain.Affiliation{}
		if err := rows.Scan(&aff.ID, &aff.Name, &aff.City, &aff.Country, &aff.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan affiliation: %w", err)
		}
		affs = append(affs, aff)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating affiliations: %w", err)
	}
	return affs, nil
}
