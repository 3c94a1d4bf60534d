// Package main provides a CLI tool that crawls a single paper identifier
// and persists the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/litcatalog/catalog-service/internal/config"
	"github.com/litcatalog/catalog-service/internal/crawler"
	"github.com/litcatalog/catalog-service/internal/database"
	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/observability"
	"github.com/litcatalog/catalog-service/internal/repository"
	"github.com/litcatalog/catalog-service/internal/sources"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	source := flag.String("source", "", "Source kind (semantic_scholar, scopus, arxiv)")
	id := flag.String("id", "", "Reference identifier to crawl (DOI, Semantic Scholar ID, arXiv ID)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout for the crawl")
	flag.Parse()

	if *source == "" || *id == "" {
		flag.Usage()
		return fmt.Errorf("both -source and -id are required")
	}

	kind := domain.SourceKind(*source)
	if kind == domain.SourceKindManual {
		return fmt.Errorf("manual entries are created through the API, not crawled")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		AddSource:  false,
		TimeFormat: time.RFC3339,
	})
	logger = logger.With().Str("component", "crawl").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	registry := sources.BuildRegistry(&cfg.Sources)
	metrics := observability.NewMetrics("catalog", prometheus.NewRegistry())

	c, err := crawler.New(kind, *id, registry, db, crawler.PgStores, logger, metrics)
	if err != nil {
		return err
	}

	// Refresh in place when the identifier has been crawled before.
	papers := repository.NewPgPaperRepository(db)
	existing, err := papers.GetByReferenceID(ctx, *id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("look up existing paper: %w", err)
	}

	paper, err := c.Crawl(ctx, existing)
	if err != nil {
		return fmt.Errorf("crawl %s %q: %w", kind, *id, err)
	}

	logger.Info().
		Str("paper_id", paper.ID.String()).
		Str("reference_id", paper.ReferenceID).
		Str("title", paper.Title).
		Msg("paper persisted")
	return nil
}
