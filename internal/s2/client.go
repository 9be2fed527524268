// Package s2 is a rate-limited client for the Semantic Scholar Academic
// Graph API, covering the paper-lookup and citation-graph endpoints the
// pipeline needs.
package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is 1 request per second, the unauthenticated quota.
	DefaultRateLimit = 1.0

	// PaperFields are the fields requested for paper lookups.
	PaperFields = "paperId,title,abstract,year,venue,authors,url,externalIds"

	userAgent = "mlsec-papers/1.0"
)

// Client is a rate-limited HTTP client for the Graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithRateLimit overrides the requests-per-second quota.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// NewClient creates a new Graph API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == 404:
		return ErrNotFound
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

// GetPaper fetches a paper by its identifier (S2 id, DOI:..., ARXIV:...).
func (c *Client) GetPaper(ctx context.Context, paperID string) (*Paper, error) {
	q := url.Values{}
	q.Set("fields", PaperFields)

	var paper Paper
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID), q, &paper); err != nil {
		return nil, err
	}
	if paper.PaperID == "" {
		return nil, ErrNotFound
	}
	return &paper, nil
}

// SearchPaper searches by title and returns the best match, or ErrNotFound
// when the search yields nothing.
func (c *Client) SearchPaper(ctx context.Context, title string) (*Paper, error) {
	q := url.Values{}
	q.Set("query", title)
	q.Set("fields", PaperFields)
	q.Set("limit", "1")

	var resp searchResponse
	if err := c.get(ctx, "/paper/search", q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Data[0], nil
}

// GetCitations fetches papers that cite the given paper, up to limit.
func (c *Client) GetCitations(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	q := url.Values{}
	q.Set("fields", PaperFields)
	q.Set("limit", fmt.Sprintf("%d", limit))

	var resp citationsResponse
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID)+"/citations", q, &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if entry.CitingPaper == nil || entry.CitingPaper.PaperID == "" {
			continue
		}
		papers = append(papers, *entry.CitingPaper)
	}
	return papers, nil
}

// GetReferences fetches papers that the given paper cites, up to limit.
func (c *Client) GetReferences(ctx context.Context, paperID string, limit int) ([]Paper, error) {
	q := url.Values{}
	q.Set("fields", PaperFields)
	q.Set("limit", fmt.Sprintf("%d", limit))

	var resp referencesResponse
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID)+"/references", q, &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Data))
	for _, entry := range resp.Data {
		if entry.CitedPaper == nil || entry.CitedPaper.PaperID == "" {
			continue
		}
		papers = append(papers, *entry.CitedPaper)
	}
	return papers, nil
}
