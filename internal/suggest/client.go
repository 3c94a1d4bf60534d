// Package suggest calls a text-analytics service to extract key phrases
// from paper abstracts. The call is best effort: the catalog stores
// whatever phrases come back and a failure never blocks a crawl.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/litcatalog/catalog-service/internal/domain"
)

const (
	// DefaultBaseURL is the default text-analytics endpoint.
	DefaultBaseURL = "https://westcentralus.api.cognitive.microsoft.com/text/analytics/v2.1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second

	// subscriptionKeyHeader carries the service subscription key.
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

	serviceName = "text analytics"
)

// Config contains configuration options for the suggestion client.
type Config struct {
	// BaseURL is the text-analytics endpoint base URL.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the subscription key.
	APIKey string

	// Timeout is the HTTP request timeout.
	// Defaults to DefaultTimeout if zero.
	Timeout time.Duration
}

// Result is the outcome of one suggestion call. Err is carried alongside
// the phrases so callers can log the failure and move on.
type Result struct {
	Phrases []string
	Err     error
}

// Client extracts key phrases from free text.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a suggestion client.
// If httpClient is nil, a new one will be created with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

type document struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

type keyPhrasesRequest struct {
	Documents []document `json:"documents"`
}

type keyPhrasesResponse struct {
	Documents []struct {
		ID         string   `json:"id"`
		KeyPhrases []string `json:"keyPhrases"`
	} `json:"documents"`
}

// KeyPhrases extracts key phrases from the text. Empty text short-circuits
// to an empty result without a network call.
func (c *Client) KeyPhrases(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	payload, err := json.Marshal(keyPhrasesRequest{
		Documents: []document{{ID: "1", Language: "en", Text: text}},
	})
	if err != nil {
		return Result{Err: fmt.Errorf("encoding request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/keyPhrases", bytes.NewReader(payload))
	if err != nil {
		return Result{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(subscriptionKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("executing request: %w", err)}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Result{Err: domain.NewExternalAPIError(serviceName, resp.StatusCode, "key phrase extraction failed", nil)}
	}

	var decoded keyPhrasesResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return Result{Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(decoded.Documents) == 0 {
		return Result{}
	}
	return Result{Phrases: decoded.Documents[0].KeyPhrases}
}
