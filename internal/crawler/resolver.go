package crawler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/observability"
)

// resolver maps a normalized record's names onto catalog entities with
// get-or-create semantics and rebuilds the paper's link tables. It runs
// inside the crawl transaction; any error rolls the whole crawl back.
type resolver struct {
	stores  Stores
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func (r *resolver) resolve(ctx context.Context, paper *domain.Paper, rec *domain.PaperRecord) error {
	if err := r.resolveKeywords(ctx, paper, rec); err != nil {
		return err
	}

	affiliations, err := r.resolveAffiliations(ctx, rec)
	if err != nil {
		return err
	}

	return r.resolveAuthors(ctx, paper, rec, affiliations)
}

func (r *resolver) resolveKeywords(ctx context.Context, paper *domain.Paper, rec *domain.PaperRecord) error {
	if err := r.stores.Keywords.ClearPaperLinks(ctx, paper.ID); err != nil {
		return err
	}
	paper.Keywords = nil

	for _, name := range rec.Keywords() {
		keyword, created, err := r.stores.Keywords.GetOrCreate(ctx, name)
		if err != nil {
			return err
		}
		if created {
			r.metrics.RecordEntityCreated("keyword")
		}
		if err := r.stores.Keywords.LinkToPaper(ctx, keyword.ID, paper.ID); err != nil {
			return err
		}
		paper.Keywords = append(paper.Keywords, keyword)
	}
	return nil
}

// resolveAffiliations maps source-internal affiliation ids to persisted
// entities. First-seen city/country win; the repository never overwrites.
func (r *resolver) resolveAffiliations(ctx context.Context, rec *domain.PaperRecord) (map[string]*domain.Affiliation, error) {
	resolved := make(map[string]*domain.Affiliation, len(rec.Affiliations))
	for sourceID, aff := range rec.Affiliations {
		entity, created, err := r.stores.Affiliations.GetOrCreate(ctx, aff.Name, aff.City, aff.Country)
		if err != nil {
			return nil, err
		}
		if created {
			r.metrics.RecordEntityCreated("affiliation")
		}
		resolved[sourceID] = entity
	}
	return resolved, nil
}

func (r *resolver) resolveAuthors(ctx context.Context, paper *domain.Paper, rec *domain.PaperRecord, affiliations map[string]*domain.Affiliation) error {
	if err := r.stores.Authors.ClearPaperLinks(ctx, paper.ID); err != nil {
		return err
	}
	paper.Authors = nil

	for _, ra := range rec.Authors {
		author, created, err := r.stores.Authors.GetOrCreate(ctx, ra.Name, ra.IndexedName)
		if err != nil {
			return err
		}
		if created {
			r.metrics.RecordEntityCreated("author")
		}

		link, err := r.stores.Authors.LinkToPaper(ctx, author.ID, paper.ID, ra.Order)
		if err != nil {
			return err
		}
		link.Author = author

		for _, sourceID := range ra.AffiliationIDs {
			entity, ok := affiliations[sourceID]
			if !ok {
				// The enrichment document referenced an institution it
				// never declared. Fail the crawl rather than drop the link.
				return domain.NewAffiliationReferenceError(sourceID, ra.Name)
			}
			if err := r.stores.Affiliations.LinkToAuthorPaper(ctx, link.ID, entity.ID); err != nil {
				return err
			}
			link.Affiliations = append(link.Affiliations, entity)
		}

		paper.Authors = append(paper.Authors, link)
	}
	return nil
}
