package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/prospector/pkg/httpclient"
)

const (
	// DefaultEndpoint is the SerpAPI JSON search endpoint.
	DefaultEndpoint = "https://serpapi.com/search.json"
	// MaxResults is the largest result count SerpAPI honours per request.
	MaxResults = 100
)

// SerpAPIConfig configures the SerpAPI provider.
type SerpAPIConfig struct {
	APIKey    string
	Endpoint  string
	Engine    string
	UserAgent string
	Timeout   time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// SerpAPI implements SERPProvider against serpapi.com.
type SerpAPI struct {
	cfg    SerpAPIConfig
	client *httpclient.Client
}

var _ SERPProvider = (*SerpAPI)(nil)

type serpAPIResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// NewSerpAPI validates cfg and builds a provider.
func NewSerpAPI(cfg SerpAPIConfig) (*SerpAPI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("serpapi: api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Engine == "" {
		cfg.Engine = "google"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		UserAgent:    cfg.UserAgent,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}

	return &SerpAPI{cfg: cfg, client: client}, nil
}

// Search issues one query. Any non-2xx status, transport error or payload
// that cannot be decoded is returned as a *SearchFailure. A response without
// organic_results is a valid empty page.
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit < 0 {
		return nil, &SearchFailure{Query: query, Err: fmt.Errorf("limit cannot be negative: %d", limit)}
	}
	if limit > MaxResults {
		limit = MaxResults
	}

	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return nil, &SearchFailure{Query: query, Err: fmt.Errorf("bad endpoint: %w", err)}
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("engine", s.cfg.Engine)
	params.Set("api_key", s.cfg.APIKey)
	params.Set("num", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &SearchFailure{Query: query, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return nil, &SearchFailure{Query: query, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SearchFailure{Query: query, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SearchFailure{
			Query:      query,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", apiError(body, resp.Status)),
		}
	}

	var payload serpAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &SearchFailure{Query: query, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode payload: %w", err)}
	}

	results := make([]SearchResult, 0, len(payload.OrganicResults))
	for _, item := range payload.OrganicResults {
		results = append(results, SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

// apiError prefers the "error" field SerpAPI puts in failed responses.
func apiError(body []byte, fallback string) string {
	var payload serpAPIResponse
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return fallback
}
