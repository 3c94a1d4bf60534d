// Package crawler drives one metadata crawl end to end: validate the
// identifier, fetch and enrich the normalized record through the source
// pipeline, resolve entities, and persist the paper aggregate in a single
// transaction.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/metasources"
	"github.com/litcatalog/catalog-service/internal/observability"
	"github.com/litcatalog/catalog-service/internal/repository"
)

// State is the crawl lifecycle stage.
type State string

const (
	StateIdle        State = "idle"
	StateValidating  State = "validating"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateResolving   State = "resolving"
	StatePersisted   State = "persisted"
	StateFailed      State = "failed"
)

// Transactor runs a function inside one database transaction.
// *database.DB satisfies it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Stores bundles the repositories one crawl persists through.
type Stores struct {
	Papers       repository.PaperRepository
	Authors      repository.AuthorRepository
	Affiliations repository.AffiliationRepository
	Keywords     repository.KeywordRepository
}

// StoreFactory builds repositories scoped to the given database handle,
// usually the crawl transaction.
type StoreFactory func(db repository.DBTX) Stores

// PgStores is the production StoreFactory.
func PgStores(db repository.DBTX) Stores {
	return Stores{
		Papers:       repository.NewPgPaperRepository(db),
		Authors:      repository.NewPgAuthorRepository(db),
		Affiliations: repository.NewPgAffiliationRepository(db),
		Keywords:     repository.NewPgKeywordRepository(db),
	}
}

// Crawler is a one-shot orchestrator for a single (source kind, identifier)
// pair. It is not safe for concurrent use; create one per crawl.
type Crawler struct {
	kind     domain.SourceKind
	id       string
	registry *metasources.Registry
	db       Transactor
	stores   StoreFactory
	logger   zerolog.Logger
	metrics  *observability.Metrics

	state   State
	failure error
	record  *domain.PaperRecord
}

// New creates a crawler for one identifier. The manual source kind takes no
// pipeline; every other kind must have one registered.
func New(
	kind domain.SourceKind,
	id string,
	registry *metasources.Registry,
	db Transactor,
	stores StoreFactory,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) (*Crawler, error) {
	if !kind.Valid() {
		return nil, domain.NewValidationError("source_kind", fmt.Sprintf("unknown source kind %q", kind))
	}
	if kind != domain.SourceKindManual {
		if id == "" {
			return nil, domain.NewValidationError("reference_id", "reference identifier is required")
		}
		if _, ok := registry.Pipeline(kind); !ok {
			return nil, domain.NewValidationError("source_kind", fmt.Sprintf("no pipeline registered for source kind %q", kind))
		}
	}
	return &Crawler{
		kind:     kind,
		id:       id,
		registry: registry,
		db:       db,
		stores:   stores,
		logger:   observability.WithCrawlContext(logger, string(kind), id),
		metrics:  metrics,
		state:    StateIdle,
	}, nil
}

// State returns the current lifecycle stage.
func (c *Crawler) State() State {
	return c.state
}

// Err returns the terminal failure, if the crawl has failed.
func (c *Crawler) Err() error {
	return c.failure
}

// Validate checks the identifier against the source's authority of record.
// It never returns an error: a check that cannot be completed counts as
// invalid and is logged. Manual identifiers are always valid.
func (c *Crawler) Validate(ctx context.Context) bool {
	if c.kind == domain.SourceKindManual {
		return true
	}

	c.state = StateValidating
	pipeline, _ := c.registry.Pipeline(c.kind)

	start := time.Now()
	ok, err := pipeline.Validate(ctx, c.id)
	c.metrics.RecordSourceRequest(pipeline.Source.Name(), "validate", time.Since(start).Seconds(), err != nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("identifier validation could not be completed")
		return false
	}
	return ok
}

// RetrieveMetadata fetches the normalized record through the pipeline.
// The result is cached: repeated calls return the same record without
// another fetch.
func (c *Crawler) RetrieveMetadata(ctx context.Context) (*domain.PaperRecord, error) {
	if c.record != nil {
		return c.record, nil
	}
	if c.kind == domain.SourceKindManual {
		return nil, domain.NewValidationError("source_kind", "manual papers have no metadata source")
	}

	pipeline, _ := c.registry.Pipeline(c.kind)

	c.state = StateFetching
	start := time.Now()
	rec, err := pipeline.Fetch(ctx, c.id)
	c.metrics.RecordSourceRequest(pipeline.Source.Name(), "fetch", time.Since(start).Seconds(), err != nil)
	if err != nil {
		return nil, err
	}

	c.state = StateNormalizing
	c.record = rec
	return rec, nil
}

// Crawl runs the full pipeline and persists the result in one transaction.
// When existing is non-nil the crawl refreshes that paper in place instead
// of creating a new one. Returns the persisted aggregate with resolved
// authors, keywords, and affiliations attached.
func (c *Crawler) Crawl(ctx context.Context, existing *domain.Paper) (*domain.Paper, error) {
	c.metrics.RecordCrawlStarted(string(c.kind))
	start := time.Now()

	paper, err := c.crawl(ctx, existing)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.state = StateFailed
		c.failure = err
		c.metrics.RecordCrawlFailed(string(c.kind), errorKind(err), elapsed)
		c.logger.Error().Err(err).Str("state", string(c.state)).Msg("crawl failed")
		return nil, err
	}

	c.state = StatePersisted
	c.metrics.RecordCrawlCompleted(string(c.kind), elapsed)
	c.logger.Info().
		Str("paper_id", paper.ID.String()).
		Str("reference_id", paper.ReferenceID).
		Int("authors", len(paper.Authors)).
		Int("keywords", len(paper.Keywords)).
		Msg("crawl completed")
	return paper, nil
}

func (c *Crawler) crawl(ctx context.Context, existing *domain.Paper) (*domain.Paper, error) {
	if c.kind == domain.SourceKindManual {
		return c.crawlManual(ctx, existing)
	}

	if !c.Validate(ctx) {
		return nil, domain.NewIdentifierNotFoundError(c.kind, c.id)
	}

	rec, err := c.RetrieveMetadata(ctx)
	if err != nil {
		return nil, err
	}

	c.state = StateResolving

	var persisted *domain.Paper
	err = c.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		stores := c.stores(tx)

		paper := existing
		if paper == nil {
			paper = &domain.Paper{}
		}
		paper.ReferenceID = c.id
		paper.MetadataReference = c.kind
		rec.ApplyToPaper(paper)

		saved, err := stores.Papers.Upsert(ctx, paper)
		if err != nil {
			return err
		}

		r := &resolver{stores: stores, metrics: c.metrics, logger: c.logger}
		if err := r.resolve(ctx, saved, rec); err != nil {
			return err
		}

		persisted = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.metrics.RecordPaperUpserted(upsertOperation(existing))
	return persisted, nil
}

// crawlManual skips fetch and resolution entirely. A paper without a
// reference identifier gets the next free MANUAL_ENTRY-<n>; the sequence
// read and the insert share the transaction so concurrent manual entries
// collide on the unique constraint instead of silently double-allocating.
func (c *Crawler) crawlManual(ctx context.Context, existing *domain.Paper) (*domain.Paper, error) {
	c.state = StateResolving

	operation := "refresh"
	var persisted *domain.Paper
	err := c.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		stores := c.stores(tx)

		paper := existing
		if paper == nil {
			paper = &domain.Paper{}
		}
		paper.MetadataReference = domain.SourceKindManual
		if paper.ReferenceID == "" {
			n, err := stores.Papers.NextManualSequence(ctx)
			if err != nil {
				return err
			}
			paper.ReferenceID = domain.ManualReferenceID(n)
			operation = "create"
		}

		saved, err := stores.Papers.Upsert(ctx, paper)
		if err != nil {
			return err
		}
		persisted = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.metrics.RecordPaperUpserted(operation)
	return persisted, nil
}

func upsertOperation(existing *domain.Paper) string {
	if existing != nil {
		return "refresh"
	}
	return "create"
}

// errorKind classifies a crawl failure for metrics labels.
func errorKind(err error) string {
	var affErr *domain.AffiliationReferenceError
	switch {
	case errors.Is(err, domain.ErrIdentifierNotFound):
		return "identifier_not_found"
	case errors.Is(err, domain.ErrMetadataUnavailable):
		return "metadata_unavailable"
	case errors.As(err, &affErr):
		return "affiliation_reference"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
