package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/litcatalog/catalog-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

const paperColumns = `id, reference_id, metadata_reference, title, abstract, venue,
		paper_url, year_of_publication, publication_date, doi, issn, page_range,
		article_type, aggregation_type, volume, eid, pubmed_id, arxiv_id,
		semantic_scholar_id, semantic_scholar_url, pathology_id, topic_id, method_id,
		created_at, updated_at`

// Upsert inserts a new paper or updates the existing one with the same reference_id.
// Empty incoming text fields never clobber stored values; a crawl that could not
// recover a field leaves the previous value in place.
func (r *PgPaperRepository) Upsert(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.ReferenceID == "" {
		return nil, domain.NewValidationError("reference_id", "reference ID is required")
	}
	if !paper.MetadataReference.Valid() {
		return nil, domain.NewValidationError("metadata_reference", fmt.Sprintf("unknown source kind %q", paper.MetadataReference))
	}

	now := time.Now().UTC()
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}

	query := `
		INSERT INTO papers (` + paperColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (reference_id) DO UPDATE SET
			title = COALESCE(NULLIF(EXCLUDED.title, ''), papers.title),
			abstract = COALESCE(NULLIF(EXCLUDED.abstract, ''), papers.abstract),
			venue = COALESCE(NULLIF(EXCLUDED.venue, ''), papers.venue),
			paper_url = COALESCE(NULLIF(EXCLUDED.paper_url, ''), papers.paper_url),
			year_of_publication = CASE WHEN EXCLUDED.year_of_publication > 0
				THEN EXCLUDED.year_of_publication ELSE papers.year_of_publication END,
			publication_date = COALESCE(EXCLUDED.publication_date, papers.publication_date),
			doi = COALESCE(NULLIF(EXCLUDED.doi, ''), papers.doi),
			issn = COALESCE(NULLIF(EXCLUDED.issn, ''), papers.issn),
			page_range = COALESCE(NULLIF(EXCLUDED.page_range, ''), papers.page_range),
			article_type = COALESCE(NULLIF(EXCLUDED.article_type, ''), papers.article_type),
			aggregation_type = COALESCE(NULLIF(EXCLUDED.aggregation_type, ''), papers.aggregation_type),
			volume = COALESCE(NULLIF(EXCLUDED.volume, ''), papers.volume),
			eid = COALESCE(NULLIF(EXCLUDED.eid, ''), papers.eid),
			pubmed_id = COALESCE(NULLIF(EXCLUDED.pubmed_id, ''), papers.pubmed_id),
			arxiv_id = COALESCE(NULLIF(EXCLUDED.arxiv_id, ''), papers.arxiv_id),
			semantic_scholar_id = COALESCE(NULLIF(EXCLUDED.semantic_scholar_id, ''), papers.semantic_scholar_id),
			semantic_scholar_url = COALESCE(NULLIF(EXCLUDED.semantic_scholar_url, ''), papers.semantic_scholar_url),
			pathology_id = COALESCE(EXCLUDED.pathology_id, papers.pathology_id),
			topic_id = COALESCE(EXCLUDED.topic_id, papers.topic_id),
			method_id = COALESCE(EXCLUDED.method_id, papers.method_id),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		paper.ID,
		paper.ReferenceID,
		paper.MetadataReference,
		paper.Title,
		paper.Abstract,
		paper.Venue,
		paper.PaperURL,
		paper.YearOfPublication,
		paper.PublicationDate,
		paper.DOI,
		paper.ISSN,
		paper.PageRange,
		paper.ArticleType,
		paper.AggregationType,
		paper.Volume,
		paper.EID,
		paper.PubMedID,
		paper.ArXivID,
		paper.SemanticScholarID,
		paper.SemanticScholarURL,
		paper.PathologyID,
		paper.TopicID,
		paper.MethodID,
		now,
		now,
	).Scan(&paper.ID, &paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		// Reference ID conflicts are absorbed by the ON CONFLICT clause, so a
		// unique violation here means another paper already owns this DOI.
		if isUniqueViolation(err) {
			return nil, domain.NewAlreadyExistsError("paper", paper.DOI)
		}
		return nil, fmt.Errorf("failed to upsert paper: %w", err)
	}

	return paper, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// GetByReferenceID retrieves a paper by its external reference identifier.
func (r *PgPaperRepository) GetByReferenceID(ctx context.Context, referenceID string) (*domain.Paper, error) {
	if referenceID == "" {
		return nil, domain.NewValidationError("reference_id", "reference ID is required")
	}

	query := `SELECT ` + paperColumns + ` FROM papers WHERE reference_id = $1`

	paper, err := scanPaper(r.db.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", referenceID)
		}
		return nil, fmt.Errorf("failed to get paper by reference ID: %w", err)
	}

	return paper, nil
}

// NextManualSequence returns the next free MANUAL_ENTRY-<n> sequence number.
func (r *PgPaperRepository) NextManualSequence(ctx context.Context) (int, error) {
	query := `
		SELECT COALESCE(MAX((SUBSTRING(reference_id FROM '^MANUAL_ENTRY-(\d+)$'))::int), 0) + 1
		FROM papers
		WHERE metadata_reference = 'manual'`

	var next int
	if err := r.db.QueryRow(ctx, query).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to compute next manual sequence: %w", err)
	}
	return next, nil
}

// Search performs case-insensitive substring search across paper title,
// author name, keyword name, and topic name, deduplicated by paper id.
func (r *PgPaperRepository) Search(ctx context.Context, query string, limit, offset int) ([]*domain.Paper, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, domain.NewValidationError("query", "search query is required")
	}
	applyPaginationDefaults(&limit, &offset)

	const matchClause = `
		FROM papers p
		LEFT JOIN author_papers ap ON ap.paper_id = p.id
		LEFT JOIN authors a ON a.id = ap.author_id
		LEFT JOIN paper_keywords pk ON pk.paper_id = p.id
		LEFT JOIN keywords k ON k.id = pk.keyword_id
		LEFT JOIN topics t ON t.id = p.topic_id
		WHERE p.title ILIKE '%' || $1 || '%'
			OR a.name ILIKE '%' || $1 || '%'
			OR k.name ILIKE '%' || $1 || '%'
			OR t.name ILIKE '%' || $1 || '%'`

	var totalCount int64
	countQuery := `SELECT COUNT(DISTINCT p.id)` + matchClause
	if err := r.db.QueryRow(ctx, countQuery, query).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	selectQuery := `SELECT DISTINCT ` + prefixColumns("p.") + matchClause + `
		ORDER BY p.created_at DESC, p.id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, selectQuery, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search papers: %w", err)
	}
	defer rows.Close()

	papers, err := collectPapers(rows, limit)
	if err != nil {
		return nil, 0, err
	}

	return papers, totalCount, nil
}

// List retrieves papers matching the filter criteria, newest first.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.SourceKind != nil {
		conditions = append(conditions, fmt.Sprintf("p.metadata_reference = $%d", argIndex))
		args = append(args, *filter.SourceKind)
		argIndex++
	}

	if filter.KeywordID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM paper_keywords pk WHERE pk.paper_id = p.id AND pk.keyword_id = $%d)", argIndex))
		args = append(args, *filter.KeywordID)
		argIndex++
	}

	if filter.TopicID != nil {
		conditions = append(conditions, fmt.Sprintf("p.topic_id = $%d", argIndex))
		args = append(args, *filter.TopicID)
		argIndex++
	}

	if filter.PathologyID != nil {
		conditions = append(conditions, fmt.Sprintf("p.pathology_id = $%d", argIndex))
		args = append(args, *filter.PathologyID)
		argIndex++
	}

	if filter.MethodID != nil {
		conditions = append(conditions, fmt.Sprintf("p.method_id = $%d", argIndex))
		args = append(args, *filter.MethodID)
		argIndex++
	}

	if filter.AuthorID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM author_papers ap WHERE ap.paper_id = p.id AND ap.author_id = $%d)", argIndex))
		args = append(args, *filter.AuthorID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers p %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM papers p
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		prefixColumns("p."), whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers, err := collectPapers(rows, filter.Limit)
	if err != nil {
		return nil, 0, err
	}

	return papers, totalCount, nil
}

// LoadAssociations populates Authors (with affiliations) and Keywords on the paper.
func (r *PgPaperRepository) LoadAssociations(ctx context.Context, paper *domain.Paper) error {
	if paper == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}

	authorQuery := `
		SELECT ap.id, ap.author_id, ap.paper_id, ap.author_order,
			a.name, a.indexed_name, a.created_at
		FROM author_papers ap
		INNER JOIN authors a ON a.id = ap.author_id
		WHERE ap.paper_id = $1
		ORDER BY ap.author_order`

	rows, err := r.db.Query(ctx, authorQuery, paper.ID)
	if err != nil {
		return fmt.Errorf("failed to load paper authors: %w", err)
	}

	paper.Authors = paper.Authors[:0]
	for rows.Next() {
		link := &domain.AuthorPaper{Author: &domain.Author{}}
		if err := rows.Scan(
			&link.ID, &link.AuthorID, &link.PaperID, &link.AuthorOrder,
			&link.Author.Name, &link.Author.IndexedName, &link.Author.CreatedAt,
		); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan paper author: %w", err)
		}
		link.Author.ID = link.AuthorID
		paper.Authors = append(paper.Authors, link)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating paper authors: %w", err)
	}

	affiliationQuery := `
		SELECT apa.author_paper_id, af.id, af.name, af.city, af.country, af.created_at
		FROM author_paper_affiliations apa
		INNER JOIN affiliations af ON af.id = apa.affiliation_id
		INNER JOIN author_papers ap ON ap.id = apa.author_paper_id
		WHERE ap.paper_id = $1
		ORDER BY af.name`

	affRows, err := r.db.Query(ctx, affiliationQuery, paper.ID)
	if err != nil {
		return fmt.Errorf("failed to load paper affiliations: %w", err)
	}

	byLink := make(map[uuid.UUID]*domain.AuthorPaper, len(paper.Authors))
	for _, link := range paper.Authors {
		byLink[link.ID] = link
	}
	for affRows.Next() {
		var linkID uuid.UUID
		aff := &domain.Affiliation{}
		if err := affRows.Scan(&linkID, &aff.ID, &aff.Name, &aff.City, &aff.Country, &aff.CreatedAt); err != nil {
			affRows.Close()
			return fmt.Errorf("failed to scan paper affiliation: %w", err)
		}
		if link, ok := byLink[linkID]; ok {
			link.Affiliations = append(link.Affiliations, aff)
		}
	}
	affRows.Close()
	if err := affRows.Err(); err != nil {
		return fmt.Errorf("error iterating paper affiliations: %w", err)
	}

	keywordQuery := `
		SELECT k.id, k.name, k.created_at
		FROM paper_keywords pk
		INNER JOIN keywords k ON k.id = pk.keyword_id
		WHERE pk.paper_id = $1
		ORDER BY k.name`

	kwRows, err := r.db.Query(ctx, keywordQuery, paper.ID)
	if err != nil {
		return fmt.Errorf("failed to load paper keywords: %w", err)
	}
	defer kwRows.Close()

	paper.Keywords = paper.Keywords[:0]
	for kwRows.Next() {
		kw := &domain.Keyword{}
		if err := kwRows.Scan(&kw.ID, &kw.Name, &kw.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan paper keyword: %w", err)
		}
		paper.Keywords = append(paper.Keywords, kw)
	}
	if err := kwRows.Err(); err != nil {
		return fmt.Errorf("error iterating paper keywords: %w", err)
	}

	return nil
}

// prefixColumns qualifies the paper column list with a table alias.
func prefixColumns(prefix string) string {
	cols := strings.Split(paperColumns, ",")
	for i, c := range cols {
		cols[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper domain.Paper
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	p := &d.paper
	return []interface{}{
		&p.ID, &p.ReferenceID, &p.MetadataReference, &p.Title, &p.Abstract, &p.Venue,
		&p.PaperURL, &p.YearOfPublication, &p.PublicationDate, &p.DOI, &p.ISSN, &p.PageRange,
		&p.ArticleType, &p.AggregationType, &p.Volume, &p.EID, &p.PubMedID, &p.ArXivID,
		&p.SemanticScholarID, &p.SemanticScholarURL, &p.PathologyID, &p.TopicID, &p.MethodID,
		&p.CreatedAt, &p.UpdatedAt,
	}
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return &dest.paper, nil
}

// collectPapers drains rows into a slice of papers.
func collectPapers(rows pgx.Rows, capacity int) ([]*domain.Paper, error) {
	papers := make([]*domain.Paper, 0, capacity)
	for rows.Next() {
		var dest paperScanDest
		if err := rows.Scan(dest.destinations()...); err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, &dest.paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}
	return papers, nil
}
