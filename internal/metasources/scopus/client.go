// Package scopus provides the commercial citation-database enrichment pass
// and the Crossref-backed DOI validator used by the citation-db pipeline.
package scopus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/metasources"
)

const (
	// DefaultBaseURL is the default base URL for the Elsevier content API.
	DefaultBaseURL = "https://api.elsevier.com/content"

	// DefaultCrossrefBaseURL is the default base URL for the Crossref API.
	DefaultCrossrefBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for Elsevier requests.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// apiKeyHeader is the Elsevier API key header.
	apiKeyHeader = "X-ELS-APIKey"

	// scopusIDPrefix precedes the numeric document id in search results.
	scopusIDPrefix = "SCOPUS_ID:"

	// coverDateFormat is the layout of prism:coverDate values.
	coverDateFormat = "2006-01-02"

	// sourceName is the human-readable name for this source.
	sourceName = "Scopus"
)

// Config contains configuration options for the Scopus enricher.
type Config struct {
	// BaseURL is the Elsevier content API base URL.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// CrossrefBaseURL is the Crossref API base URL used for DOI validation.
	// Defaults to DefaultCrossrefBaseURL if empty.
	CrossrefBaseURL string

	// APIKey is the Elsevier API key. Required for enrichment.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	// Defaults to DefaultRateLimit if zero.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	// Defaults to DefaultBurstSize if zero.
	BurstSize int
}

func (cfg Config) withDefaults() Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CrossrefBaseURL == "" {
		cfg.CrossrefBaseURL = DefaultCrossrefBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	return cfg
}

// CrossrefValidator validates DOIs against the Crossref registration agency
// endpoint. A DOI is valid when Crossref knows which agency minted it.
type CrossrefValidator struct {
	httpClient *metasources.HTTPClient
	baseURL    string
}

// Compile-time check that CrossrefValidator implements metasources.Validator.
var _ metasources.Validator = (*CrossrefValidator)(nil)

// NewCrossrefValidator creates a DOI validator.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewCrossrefValidator(cfg Config, httpClient *metasources.HTTPClient) *CrossrefValidator {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		// Crossref is unauthenticated; keep the source rate limit.
		httpClient = metasources.NewHTTPClient(metasources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}
	return &CrossrefValidator{
		httpClient: httpClient,
		baseURL:    cfg.CrossrefBaseURL,
	}
}

// Validate reports whether the DOI is registered.
func (v *CrossrefValidator) Validate(ctx context.Context, doi string) (bool, error) {
	agencyURL := fmt.Sprintf("%s/works/%s/agency", v.baseURL, url.PathEscape(doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agencyURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("executing request: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, domain.NewExternalAPIError("Crossref", resp.StatusCode, "agency lookup failed", nil)
	}
}

// Enricher layers citation-database metadata onto a baseline record:
// publication core data, author indexed names and affiliations, and the
// union of author keywords, index terms, and subject areas.
type Enricher struct {
	httpClient *metasources.HTTPClient
	config     Config
}

// Compile-time check that Enricher implements metasources.Enricher.
var _ metasources.Enricher = (*Enricher)(nil)

// NewEnricher creates a new Scopus enricher.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewEnricher(cfg Config, httpClient *metasources.HTTPClient) *Enricher {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = metasources.NewHTTPClient(metasources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}
	return &Enricher{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Name returns the human-readable name for this source.
func (e *Enricher) Name() string {
	return sourceName
}

// Enrich looks the DOI up in the citation database and merges the document
// into rec. The database not knowing the DOI is not an error; the baseline
// record stands.
func (e *Enricher) Enrich(ctx context.Context, doi string, rec *domain.PaperRecord) error {
	scopusID, found, err := e.findByDOI(ctx, doi)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	doc, found, err := e.retrieveAbstract(ctx, doi, scopusID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	e.merge(doc, rec)
	return nil
}

// findByDOI searches the database for the DOI and returns the document id
// of the entry whose DOI matches exactly. Near matches from the search
// index are ignored.
func (e *Enricher) findByDOI(ctx context.Context, doi string) (string, bool, error) {
	searchURL := fmt.Sprintf("%s/search/scopus?query=%s", e.config.BaseURL, url.QueryEscape(doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("executing request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, domain.NewExternalAPIError(sourceName, resp.StatusCode, "search failed", nil)
	}

	var search searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&search); err != nil {
		return "", false, domain.NewMetadataUnavailableError(domain.SourceKindScopus, doi, err)
	}

	for _, entry := range search.Results.Entries {
		if entry.DOI != doi {
			continue
		}
		if id, ok := strings.CutPrefix(entry.Identifier, scopusIDPrefix); ok && id != "" {
			return id, true, nil
		}
	}
	return "", false, nil
}

// retrieveAbstract fetches the abstract document for a database-internal id.
func (e *Enricher) retrieveAbstract(ctx context.Context, doi, scopusID string) (*abstractDocument, bool, error) {
	absURL := fmt.Sprintf("%s/abstract/scopus_id/%s", e.config.BaseURL, url.PathEscape(scopusID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, absURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("executing request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, domain.NewExternalAPIError(sourceName, resp.StatusCode, "abstract retrieval failed", nil)
	}

	var abstract abstractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&abstract); err != nil {
		return nil, false, domain.NewMetadataUnavailableError(domain.SourceKindScopus, doi, err)
	}
	if abstract.Document == nil {
		return nil, false, domain.NewMetadataUnavailableError(domain.SourceKindScopus, doi, nil)
	}
	return abstract.Document, true, nil
}

// merge copies the abstract document's fields onto the record.
func (e *Enricher) merge(doc *abstractDocument, rec *domain.PaperRecord) {
	if doc.AuthKeywords != nil {
		for _, kw := range doc.AuthKeywords.Keywords {
			rec.AddKeyword(kw.Name)
		}
	}
	if doc.IdxTerms != nil {
		for _, term := range doc.IdxTerms.Terms {
			rec.AddKeyword(term.Name)
		}
	}
	if doc.SubjectAreas != nil {
		for _, area := range doc.SubjectAreas.Areas {
			rec.AddKeyword(area.Name)
		}
	}

	for _, aff := range doc.Affiliations {
		rec.AddAffiliation(aff.ID, domain.RecordAffiliation{
			Name:    aff.Name,
			City:    aff.City,
			Country: aff.Country,
		})
	}

	if doc.Authors != nil {
		for _, a := range doc.Authors.Authors {
			name := domain.SanitizeAuthorName(strings.TrimSpace(a.GivenName + " " + a.Surname))
			recAuthor := rec.AuthorByName(name)
			if recAuthor == nil {
				// Not in the baseline author list; skip rather than invent.
				continue
			}
			recAuthor.IndexedName = a.IndexedName
			for _, ref := range a.Affiliations {
				if ref.ID != "" {
					recAuthor.AffiliationIDs = append(recAuthor.AffiliationIDs, ref.ID)
				}
			}
		}
	}

	if doc.CoreData != nil {
		cd := doc.CoreData
		setIfPresent(&rec.Abstract, cd.Abstract)
		setIfPresent(&rec.DOI, cd.DOI)
		setIfPresent(&rec.ISSN, cd.ISSN)
		setIfPresent(&rec.PageRange, cd.PageRange)
		setIfPresent(&rec.ArticleType, cd.PublicationName)
		setIfPresent(&rec.AggregationType, cd.AggregationType)
		setIfPresent(&rec.Volume, cd.Volume)
		setIfPresent(&rec.EID, cd.EID)
		setIfPresent(&rec.PubMedID, cd.PubMedID)
		if cd.CoverDate != "" {
			if d, err := time.Parse(coverDateFormat, cd.CoverDate); err == nil {
				rec.PublicationDate = &d
			}
			// Unparseable dates are omitted, not fatal.
		}
	}
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
