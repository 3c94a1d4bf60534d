// Package arxiv provides the preprint-repository enrichment pass and the
// abstract-page validator used by the preprint pipeline.
package arxiv

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the default base URL for the arXiv export API.
	DefaultBaseURL = "http://export.arxiv.org/api"

	// DefaultAbsBaseURL is the default abstract page prefix used to
	// validate identifiers.
	DefaultAbsBaseURL = "https://arxiv.org/abs"

	// DefaultRateLimit is one request every three seconds, per the
	// repository's published crawling guidance.
	DefaultRateLimit = 1.0 / 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// publishedDateFormat is the layout of Atom published timestamps.
	publishedDateFormat = "2006-01-02T15:04:05Z"

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// Config contains configuration options for the arXiv clients.
type Config struct {
	// BaseURL is the export API base URL.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// AbsBaseURL is the public abstract page prefix used for validation.
	// Defaults to DefaultAbsBaseURL if empty.
	AbsBaseURL string

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
	if cfg.AbsBaseURL == "" {
		cfg.AbsBaseURL = DefaultAbsBaseURL
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

// Validator validates identifiers by probing the public abstract page.
type Validator struct {
	httpClient *metasources.HTTPClient
	absBaseURL string
}

// Compile-time check that Validator implements metasources.Validator.
var _ metasources.Validator = (*Validator)(nil)

// NewValidator creates an identifier validator.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewValidator(cfg Config, httpClient *metasources.HTTPClient) *Validator {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = metasources.NewHTTPClient(metasources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}
	return &Validator{
		httpClient: httpClient,
		absBaseURL: strings.TrimRight(cfg.AbsBaseURL, "/"),
	}
}

// Validate reports whether the identifier has an abstract page.
func (v *Validator) Validate(ctx context.Context, id string) (bool, error) {
	absURL := id
	if !strings.HasPrefix(id, v.absBaseURL) {
		absURL = v.absBaseURL + "/" + url.PathEscape(id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, absURL, nil)
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
		return false, domain.NewExternalAPIError(sourceName, resp.StatusCode, "abstract page probe failed", nil)
	}
}

// Enricher layers preprint metadata onto a baseline record: the abstract,
// the precise publication timestamp, and category terms as keywords.
type Enricher struct {
	httpClient *metasources.HTTPClient
	config     Config
}

// Compile-time check that Enricher implements metasources.Enricher.
var _ metasources.Enricher = (*Enricher)(nil)

// NewEnricher creates a new arXiv enricher.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewEnricher(cfg Config, httpClient *metasources.HTTPClient) *Enricher {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = metasources.NewHTTPClient(metasources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
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

// Enrich queries the export API for the identifier and merges the first
// feed entry into rec. An empty feed is not an error; the baseline record
// stands.
func (e *Enricher) Enrich(ctx context.Context, id string, rec *domain.PaperRecord) error {
	queryURL := fmt.Sprintf("%s/query?id_list=%s", e.config.BaseURL, url.QueryEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "export query failed", nil)
	}

	var f feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&f); err != nil {
		return domain.NewMetadataUnavailableError(domain.SourceKindArXiv, id, err)
	}
	if len(f.Entries) == 0 {
		return nil
	}

	e.merge(&f.Entries[0], rec)
	return nil
}

// merge copies a feed entry's fields onto the record.
func (e *Enricher) merge(entry *entry, rec *domain.PaperRecord) {
	if abstract := strings.TrimSpace(entry.Summary); abstract != "" {
		rec.Abstract = abstract
	}

	if entry.Published != "" {
		if d, err := time.Parse(publishedDateFormat, entry.Published); err == nil {
			rec.PublicationDate = &d
		}
		// Unparseable dates are omitted, not fatal.
	}

	for _, cat := range entry.Categories {
		// Prefer the human-readable label over the taxonomy term.
		name := cat.Label
		if name == "" {
			name = cat.Term
		}
		rec.AddKeyword(name)
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
