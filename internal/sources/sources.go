// Package sources wires the configured metadata providers into the source
// registry shared by the API server and the crawl CLI.
package sources

import (
	"github.com/litcatalog/catalog-service/internal/config"
	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/metasources"
	"github.com/litcatalog/catalog-service/internal/metasources/arxiv"
	"github.com/litcatalog/catalog-service/internal/metasources/scopus"
	"github.com/litcatalog/catalog-service/internal/metasources/semanticscholar"
)

// BuildRegistry constructs the registry of metadata source pipelines. Every
// pipeline fetches its baseline record from Semantic Scholar; the
// citation-database and preprint pipelines validate identifiers against their
// own authority and layer source-specific enrichment on top.
func BuildRegistry(cfg *config.SourcesConfig) *metasources.Registry {
	s2 := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:   cfg.SemanticScholar.BaseURL,
		APIKey:    cfg.SemanticScholar.APIKey,
		Timeout:   cfg.SemanticScholar.Timeout,
		RateLimit: cfg.SemanticScholar.RateLimit,
		BurstSize: cfg.SemanticScholar.BurstSize,
	}, nil)

	scopusCfg := scopus.Config{
		BaseURL:         cfg.Scopus.BaseURL,
		CrossrefBaseURL: cfg.Scopus.CrossrefBaseURL,
		APIKey:          cfg.Scopus.APIKey,
		Timeout:         cfg.Scopus.Timeout,
		RateLimit:       cfg.Scopus.RateLimit,
		BurstSize:       cfg.Scopus.BurstSize,
	}

	arxivCfg := arxiv.Config{
		BaseURL:    cfg.ArXiv.BaseURL,
		AbsBaseURL: cfg.ArXiv.AbsBaseURL,
		Timeout:    cfg.ArXiv.Timeout,
		RateLimit:  cfg.ArXiv.RateLimit,
		BurstSize:  cfg.ArXiv.BurstSize,
	}

	registry := metasources.NewRegistry()
	registry.Register(domain.SourceKindSemanticScholar, &metasources.Pipeline{
		Source: s2,
	})
	registry.Register(domain.SourceKindScopus, &metasources.Pipeline{
		Source:    metasources.Validated(s2, scopus.NewCrossrefValidator(scopusCfg, nil)),
		Enrichers: []metasources.Enricher{scopus.NewEnricher(scopusCfg, nil)},
	})
	registry.Register(domain.SourceKindArXiv, &metasources.Pipeline{
		Source:    metasources.Validated(metasources.Prefixed(s2, "arXiv:"), arxiv.NewValidator(arxivCfg, nil)),
		Enrichers: []metasources.Enricher{arxiv.NewEnricher(arxivCfg, nil)},
	})
	return registry
}
