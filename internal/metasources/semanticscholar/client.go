// Package semanticscholar provides the scholarly-graph metadata source.
// It serves as the baseline fetch of every crawl pipeline: papers are looked
// up directly by Semantic Scholar ID, DOI, or "arXiv:<id>".
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/litcatalog/catalog-service/internal/domain"
	"github.com/litcatalog/catalog-service/internal/metasources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar API.
	DefaultBaseURL = "https://api.semanticscholar.org/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated requests.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the base URL for the API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	// Authenticated requests have higher rate limits.
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

// Client fetches paper metadata from the Semantic Scholar API.
type Client struct {
	httpClient *metasources.HTTPClient
	config     Config
}

// Compile-time check that Client implements metasources.Source.
var _ metasources.Source = (*Client)(nil)

// NewClient creates a new Semantic Scholar client with the given configuration.
// If httpClient is nil, a new one will be created with the configuration settings.
func NewClient(cfg Config, httpClient *metasources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
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

	if httpClient == nil {
		httpClient = metasources.NewHTTPClient(metasources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// Validate reports whether the identifier resolves to a paper.
func (c *Client) Validate(ctx context.Context, id string) (bool, error) {
	resp, err := c.getPaper(ctx, id)
	if err != nil {
		return false, err
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, c.apiError(resp)
	}
}

// Fetch retrieves the baseline record for the identifier.
func (c *Client) Fetch(ctx context.Context, id string) (*domain.PaperRecord, error) {
	resp, err := c.getPaper(ctx, id)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewIdentifierNotFoundError(domain.SourceKindSemanticScholar, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	var doc paperResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&doc); err != nil {
		return nil, domain.NewMetadataUnavailableError(domain.SourceKindSemanticScholar, id, err)
	}

	return c.toRecord(doc), nil
}

func (c *Client) getPaper(ctx context.Context, id string) (*http.Response, error) {
	paperURL := fmt.Sprintf("%s/paper/%s", c.config.BaseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paperURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// toRecord converts an API paper document to a normalized record.
func (c *Client) toRecord(doc paperResponse) *domain.PaperRecord {
	rec := domain.NewPaperRecord()
	rec.Title = doc.Title
	rec.Venue = doc.Venue
	rec.Year = doc.Year
	rec.DOI = doc.DOI
	rec.ArXivID = doc.ArXivID
	rec.SemanticScholarID = doc.PaperID
	rec.SemanticScholarURL = doc.URL
	rec.PaperURL = doc.URL

	for _, t := range doc.Topics {
		rec.AddKeyword(t.Topic)
	}

	for i, a := range doc.Authors {
		name := domain.SanitizeAuthorName(a.Name)
		if name == "" {
			continue
		}
		rec.Authors = append(rec.Authors, domain.RecordAuthor{
			Name:  name,
			Order: i + 1,
		})
	}

	return rec
}

// apiError turns a non-2xx response into a typed external API error.
func (c *Client) apiError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to read error response", err)
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		message := errResp.Error
		if message == "" {
			message = errResp.Message
		}
		if message == "" {
			message = string(body)
		}
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, message, nil)
	}

	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}
